package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/orneryd/cypherengine/pkg/arithmetic"
	"github.com/orneryd/cypherengine/pkg/ast"
	"github.com/orneryd/cypherengine/pkg/graph"
	"github.com/orneryd/cypherengine/pkg/querygraph"
	"github.com/orneryd/cypherengine/pkg/schema"
)

// Fixture is a YAML-described query graph: since AST parsing is out of
// scope (SPEC_FULL.md's Non-goals), the shell loads pre-built pattern
// descriptions instead of parsing Cypher text, in the same spirit as the
// planner's own table-driven test fixtures (pkg/planner/planner_test.go's
// node/edge helpers), just YAML-encoded for command-line use.
type Fixture struct {
	Segments []FixtureSegment `yaml:"segments"`
}

// FixtureSegment is one plan segment's ordered clause list.
type FixtureSegment struct {
	Clauses []FixtureClause `yaml:"clauses"`
}

// FixtureClause has exactly one of its fields set, naming which clause
// kind this entry describes.
type FixtureClause struct {
	Match  *FixturePattern `yaml:"match,omitempty"`
	Create *FixturePattern `yaml:"create,omitempty"`
	Return *FixtureReturn  `yaml:"return,omitempty"`
}

// FixturePattern is a MATCH or CREATE pattern: a set of nodes and the
// edges connecting them.
type FixturePattern struct {
	Nodes []FixtureNode `yaml:"nodes"`
	Edges []FixtureEdge `yaml:"edges"`
}

// FixtureNode is one pattern node.
type FixtureNode struct {
	Alias      string         `yaml:"alias"`
	Labels     []string       `yaml:"labels"`
	Properties map[string]any `yaml:"properties"`
}

// FixtureEdge is one pattern edge between two already-declared node
// aliases. Direction is "out" (src->dest, the default), "in", or "both".
type FixtureEdge struct {
	Alias     string `yaml:"alias"`
	Src       string `yaml:"src"`
	Dest      string `yaml:"dest"`
	Type      string `yaml:"type"`
	Direction string `yaml:"direction"`
}

// FixtureReturn is a RETURN clause's projection list.
type FixtureReturn struct {
	Items []FixtureProjection `yaml:"items"`
}

// FixtureProjection is one `expr AS alias` entry. Variable names the
// bound alias to project; Property optionally narrows that to a single
// property lookup (arithmetic.Variable covers both shapes with one
// type).
type FixtureProjection struct {
	Alias    string `yaml:"alias"`
	Variable string `yaml:"variable"`
	Property string `yaml:"property,omitempty"`
}

// LoadFixture reads and parses a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cyphershell: reading fixture %s: %w", path, err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("cyphershell: parsing fixture %s: %w", path, err)
	}
	return &f, nil
}

// Build converts a parsed fixture into plan segments, interning every
// label/relation-type/property name it references against reg. Property
// literal values are used as-is (CREATE property maps); MATCH patterns'
// Properties are intentionally left empty, matching querygraph.Node's
// documented contract that MATCH folds inline property-match syntax into
// a WHERE filter tree instead, which this fixture format doesn't expose.
func (f *Fixture) Build(reg *schema.Registry) []*ast.Segment {
	segments := make([]*ast.Segment, 0, len(f.Segments))
	for _, fs := range f.Segments {
		seg := &ast.Segment{}
		for _, fc := range fs.Clauses {
			switch {
			case fc.Match != nil:
				seg.Clauses = append(seg.Clauses, &ast.MatchClause{Pattern: buildPattern(fc.Match, reg, false)})
			case fc.Create != nil:
				seg.Clauses = append(seg.Clauses, &ast.CreateClause{Pattern: buildPattern(fc.Create, reg, true)})
			case fc.Return != nil:
				items := make([]ast.ProjectionItem, len(fc.Return.Items))
				for i, p := range fc.Return.Items {
					items[i] = ast.ProjectionItem{
						Expression: &arithmetic.Variable{Alias: p.Variable, Property: p.Property},
						Alias:      p.Alias,
					}
				}
				seg.Clauses = append(seg.Clauses, &ast.ReturnClause{Items: items})
			}
		}
		segments = append(segments, seg)
	}
	return segments
}

func buildPattern(p *FixturePattern, reg *schema.Registry, withProps bool) *querygraph.Graph {
	nodesByAlias := make(map[string]*querygraph.Node, len(p.Nodes))
	g := &querygraph.Graph{}
	for _, n := range p.Nodes {
		labelIDs := make([]graph.LabelID, len(n.Labels))
		for i, l := range n.Labels {
			labelIDs[i] = reg.FindOrAddLabelID(l)
		}
		qn := &querygraph.Node{Alias: n.Alias, LabelIDs: labelIDs}
		if withProps && len(n.Properties) > 0 {
			qn.Properties = make(map[string]arithmetic.Expression, len(n.Properties))
			for k, v := range n.Properties {
				reg.FindOrAddAttributeID(k)
				qn.Properties[k] = &arithmetic.Constant{Value: v}
			}
		}
		nodesByAlias[n.Alias] = qn
		g.Nodes = append(g.Nodes, qn)
	}
	for _, e := range p.Edges {
		dir := querygraph.Outgoing
		switch e.Direction {
		case "in":
			dir = querygraph.Incoming
		case "both":
			dir = querygraph.Both
		}
		var types []graph.RelationID
		if e.Type != "" {
			types = []graph.RelationID{reg.FindOrAddRelationID(e.Type)}
		}
		g.Edges = append(g.Edges, &querygraph.Edge{
			Alias:     e.Alias,
			TypeIDs:   types,
			Direction: dir,
			MinHops:   1,
			MaxHops:   1,
			Src:       nodesByAlias[e.Src],
			Dest:      nodesByAlias[e.Dest],
		})
	}
	return g
}
