package operators

import (
	"github.com/orneryd/cypherengine/pkg/arithmetic"
	"github.com/orneryd/cypherengine/pkg/record"
)

// CartesianProduct combines N independent streams (spec §4.2.3): advance
// the rightmost, and when it's exhausted reset it and advance the next one
// left, carrying the combined record forward. Order is deterministic given
// child order.
type CartesianProduct struct {
	Base

	current []*record.Record // latest record pulled from each stream, nil until first pull
	started bool
}

func NewCartesianProduct(streams ...Op) *CartesianProduct {
	var modifies []string
	for _, s := range streams {
		modifies = append(modifies, s.Modifies()...)
	}
	return &CartesianProduct{Base: Base{NameStr: "Cartesian Product", ChildOps: streams, ModifiesList: modifies}}
}

func (c *CartesianProduct) Init(ctx *ExecContext) error {
	if err := c.initChildren(ctx); err != nil {
		return err
	}
	c.current = make([]*record.Record, len(c.ChildOps))
	return nil
}

func (c *CartesianProduct) Reset() error {
	c.started = false
	for i := range c.current {
		c.current[i] = nil
	}
	return c.resetChildren()
}

func (c *CartesianProduct) Consume() (*record.Record, error) {
	if !c.started {
		for i, s := range c.ChildOps {
			rec, err := s.Consume()
			if err != nil {
				return nil, err
			}
			if rec == nil {
				return nil, nil // one stream is empty: empty product
			}
			c.current[i] = rec
		}
		c.started = true
		return c.combine(), nil
	}
	for i := len(c.ChildOps) - 1; i >= 0; i-- {
		rec, err := c.ChildOps[i].Consume()
		if err != nil {
			return nil, err
		}
		if rec != nil {
			c.current[i] = rec
			return c.combine(), nil
		}
		if i == 0 {
			return nil, nil // leftmost exhausted: product exhausted
		}
		if err := c.ChildOps[i].Reset(); err != nil {
			return nil, err
		}
		rec, err = c.ChildOps[i].Consume()
		if err != nil {
			return nil, err
		}
		c.current[i] = rec
	}
	return c.combine(), nil
}

// combine merges the latest record from each stream into one record
// sharing the product's record map (every stream's slots are disjoint
// indices of the same plan-segment map, so later SetByIndex calls don't
// clobber earlier streams' slots).
func (c *CartesianProduct) combine() *record.Record {
	out := c.current[0].Clone()
	for _, r := range c.current[1:] {
		m := r.Map()
		for i := 0; i < m.Len(); i++ {
			out.SetByIndex(i, r.GetByIndex(i))
		}
	}
	return out
}

func (c *CartesianProduct) Clone() Op {
	streams := make([]Op, len(c.ChildOps))
	for i, s := range c.ChildOps {
		streams[i] = s.Clone()
	}
	return NewCartesianProduct(streams...)
}

func (c *CartesianProduct) Free() { c.freeChildren() }

// ValueHashJoin builds a hash table on the left stream keyed by an
// arithmetic expression, then probes with the right stream (spec §4.2.3).
type ValueHashJoin struct {
	Base
	LeftKey, RightKey arithmetic.Expression

	table   map[any][]*record.Record
	built   bool
	probe   *record.Record
	matches []*record.Record
	mIdx    int
}

func NewValueHashJoin(left, right Op, leftKey, rightKey arithmetic.Expression) *ValueHashJoin {
	modifies := append(append([]string(nil), left.Modifies()...), right.Modifies()...)
	return &ValueHashJoin{
		Base:      Base{NameStr: "Value Hash Join", ChildOps: []Op{left, right}, ModifiesList: modifies},
		LeftKey:   leftKey, RightKey: rightKey,
	}
}

func (j *ValueHashJoin) Init(ctx *ExecContext) error { return j.initChildren(ctx) }

func (j *ValueHashJoin) Reset() error {
	j.table = nil
	j.built = false
	j.matches = nil
	j.mIdx = 0
	return j.resetChildren()
}

func (j *ValueHashJoin) build() error {
	j.table = make(map[any][]*record.Record)
	for {
		rec, err := j.ChildOps[0].Consume()
		if err != nil {
			return err
		}
		if rec == nil {
			break
		}
		key, err := j.LeftKey.Eval(&arithmetic.Context{Record: rec})
		if err != nil {
			return err
		}
		j.table[key] = append(j.table[key], rec)
	}
	j.built = true
	return nil
}

func (j *ValueHashJoin) Consume() (*record.Record, error) {
	if !j.built {
		if err := j.build(); err != nil {
			return nil, err
		}
	}
	for {
		if j.mIdx < len(j.matches) {
			left := j.matches[j.mIdx]
			j.mIdx++
			return j.combine(left, j.probe), nil
		}
		rec, err := j.ChildOps[1].Consume()
		if err != nil || rec == nil {
			return nil, err
		}
		key, err := j.RightKey.Eval(&arithmetic.Context{Record: rec})
		if err != nil {
			return nil, err
		}
		j.probe = rec
		j.matches = j.table[key]
		j.mIdx = 0
	}
}

func (j *ValueHashJoin) combine(left, right *record.Record) *record.Record {
	out := left.Clone()
	m := right.Map()
	for i := 0; i < m.Len(); i++ {
		out.SetByIndex(i, right.GetByIndex(i))
	}
	return out
}

func (j *ValueHashJoin) Clone() Op {
	return NewValueHashJoin(j.ChildOps[0].Clone(), j.ChildOps[1].Clone(), j.LeftKey.Clone(), j.RightKey.Clone())
}

func (j *ValueHashJoin) Free() { j.freeChildren() }

// UnionJoin sequentially consumes each child stream (spec §4.2.3),
// switching to the next when one is exhausted.
type UnionJoin struct {
	Base
	idx int
}

func NewUnionJoin(streams ...Op) *UnionJoin {
	var modifies []string
	for _, s := range streams {
		modifies = append(modifies, s.Modifies()...)
	}
	return &UnionJoin{Base: Base{NameStr: "Join", ChildOps: streams, ModifiesList: modifies}}
}

func (u *UnionJoin) Init(ctx *ExecContext) error { return u.initChildren(ctx) }
func (u *UnionJoin) Reset() error {
	u.idx = 0
	return u.resetChildren()
}

func (u *UnionJoin) Consume() (*record.Record, error) {
	for u.idx < len(u.ChildOps) {
		rec, err := u.ChildOps[u.idx].Consume()
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return rec, nil
		}
		u.idx++
	}
	return nil, nil
}

func (u *UnionJoin) Clone() Op {
	streams := make([]Op, len(u.ChildOps))
	for i, s := range u.ChildOps {
		streams[i] = s.Clone()
	}
	return NewUnionJoin(streams...)
}

func (u *UnionJoin) Free() { u.freeChildren() }
