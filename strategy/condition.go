package strategy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rustyeddy/backtester/indicators"
)

// Condition is a node in a predicate tree evaluated once per candle. Leaves
// compare indicator references; interior nodes combine children logically.
// Trees are built once at strategy construction and are read-only afterward.
//
// A missing indicator value is never an error: the condition simply
// evaluates false, which lets warmup periods pass silently.
type Condition interface {
	Evaluate(ctx *Context) bool
	Required() []indicators.Spec
	Description() string
}

// cond binds evaluate/required/description as independent capabilities over
// whatever concrete comparison produced it. This is also how heterogeneous
// short-side conditions are stored alongside long-side ones.
type cond struct {
	eval func(ctx *Context) bool
	req  []indicators.Spec
	desc string
}

func (c cond) Evaluate(ctx *Context) bool { return c.eval(ctx) }

func (c cond) Required() []indicators.Spec { return c.req }

func (c cond) Description() string { return c.desc }

// And is true when both children are true.
func And(a, b Condition) Condition {
	return cond{
		eval: func(ctx *Context) bool { return a.Evaluate(ctx) && b.Evaluate(ctx) },
		req:  mergeRequired(a.Required(), b.Required()),
		desc: fmt.Sprintf("(%s) and (%s)", a.Description(), b.Description()),
	}
}

// Or is true when either child is true.
func Or(a, b Condition) Condition {
	return cond{
		eval: func(ctx *Context) bool { return a.Evaluate(ctx) || b.Evaluate(ctx) },
		req:  mergeRequired(a.Required(), b.Required()),
		desc: fmt.Sprintf("(%s) or (%s)", a.Description(), b.Description()),
	}
}

// Not negates its child.
func Not(c Condition) Condition {
	return cond{
		eval: func(ctx *Context) bool { return !c.Evaluate(ctx) },
		req:  c.Required(),
		desc: fmt.Sprintf("not (%s)", c.Description()),
	}
}

// Group accumulates conditions and finalizes as an n-ary All or Any.
type Group struct {
	conds []Condition
}

func NewGroup() *Group { return &Group{} }

// Add appends a member and returns the group for chaining.
func (g *Group) Add(c Condition) *Group {
	g.conds = append(g.conds, c)
	return g
}

// All finalizes the group as a conjunction. An empty group is always true.
func (g *Group) All() Condition {
	members := append([]Condition(nil), g.conds...)
	return cond{
		eval: func(ctx *Context) bool {
			for _, m := range members {
				if !m.Evaluate(ctx) {
					return false
				}
			}
			return true
		},
		req:  mergeMembers(members),
		desc: joinDescriptions(members, " and "),
	}
}

// Any finalizes the group as a disjunction. An empty group is always false.
func (g *Group) Any() Condition {
	members := append([]Condition(nil), g.conds...)
	return cond{
		eval: func(ctx *Context) bool {
			for _, m := range members {
				if m.Evaluate(ctx) {
					return true
				}
			}
			return false
		},
		req:  mergeMembers(members),
		desc: joinDescriptions(members, " or "),
	}
}

func joinDescriptions(members []Condition, sep string) string {
	parts := make([]string, len(members))
	for i, m := range members {
		parts[i] = "(" + m.Description() + ")"
	}
	return strings.Join(parts, sep)
}

func mergeMembers(members []Condition) []indicators.Spec {
	lists := make([][]indicators.Spec, len(members))
	for i, m := range members {
		lists[i] = m.Required()
	}
	return mergeRequired(lists...)
}

// mergeRequired unions spec lists, deduplicated by key. Sorting first makes
// the consecutive-duplicate drop correct regardless of branch order.
func mergeRequired(lists ...[]indicators.Spec) []indicators.Spec {
	var all []indicators.Spec
	for _, l := range lists {
		all = append(all, l...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Key() < all[j].Key() })

	out := all[:0]
	for i, s := range all {
		if i == 0 || s.Key() != all[i-1].Key() {
			out = append(out, s)
		}
	}
	return out
}
