package procedures

import (
	"sync"
	"testing"
	"time"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	p := &Procedure{Name: "test.echo", Arity: 1, Outputs: []Column{{Name: "v", Type: "any"}}}
	r.Register(p)

	got, ok := r.Get("test.echo")
	if !ok {
		t.Fatalf("want registered procedure to be found")
	}
	if got.Name != "test.echo" {
		t.Fatalf("want test.echo, got %s", got.Name)
	}
	if _, ok := r.Get("test.missing"); ok {
		t.Fatalf("want unregistered name to miss")
	}
}

func TestSliceCursorStepsThenExhausts(t *testing.T) {
	c := newSliceCursor([][]any{{1}, {2}})
	row, more, err := c.Step()
	if err != nil || !more || row[0] != 1 {
		t.Fatalf("first step: row=%v more=%v err=%v", row, more, err)
	}
	row, more, err = c.Step()
	if err != nil || !more || row[0] != 2 {
		t.Fatalf("second step: row=%v more=%v err=%v", row, more, err)
	}
	_, more, err = c.Step()
	if err != nil || more {
		t.Fatalf("want exhausted cursor, got more=%v err=%v", more, err)
	}
}

func TestErrCursorDefersFailureToStep(t *testing.T) {
	c := invalidArity("test.proc", 2, 1)
	_, more, err := c.Step()
	if more {
		t.Fatalf("want no more rows from an error cursor")
	}
	if err == nil {
		t.Fatalf("want the arity error surfaced on Step")
	}
}

func TestInvokeReentrantProcedureRunsConcurrently(t *testing.T) {
	r := NewRegistry()
	r.Register(&Procedure{
		Name:      "test.reentrant",
		Arity:     0,
		Reentrant: true,
		Invoke:    func(args []any, yield []string) (Cursor, error) { return newSliceCursor([][]any{{1}}), nil },
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cur, err := r.Invoke("test.reentrant", nil, nil)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			cur.Free()
		}()
	}
	wg.Wait()
}

func TestInvokeNonReentrantProcedureSerializes(t *testing.T) {
	r := NewRegistry()
	started := make(chan struct{})
	r.Register(&Procedure{
		Name:  "test.exclusive",
		Arity: 0,
		Invoke: func(args []any, yield []string) (Cursor, error) {
			return newSliceCursor([][]any{{1}}), nil
		},
	})

	cur1, err := r.Invoke("test.exclusive", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := make(chan Cursor, 1)
	go func() {
		close(started)
		c, _ := r.Invoke("test.exclusive", nil, nil)
		second <- c
	}()
	<-started

	select {
	case <-second:
		t.Fatalf("second Invoke returned before the first was freed")
	case <-time.After(20 * time.Millisecond):
	}

	cur1.Free()

	select {
	case c := <-second:
		if c == nil {
			t.Fatalf("want the second invocation to succeed once freed")
		}
		c.Free()
	case <-time.After(time.Second):
		t.Fatalf("second Invoke never unblocked after the first was freed")
	}
}
