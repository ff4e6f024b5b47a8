package reactions

// Condition is one term of a reaction guard. A reaction's conditions form
// a disjunction of conjunctions; GroupStart marks the first term of each
// OR-clause.
type Condition struct {
	Expr       *Node
	Threshold  *Node // nil for CompareTruthy
	Compare    CompareKind
	Negate     bool
	GroupStart bool
}

// Eval evaluates the single term.
func (c Condition) Eval(ctx *Context) bool {
	left := c.Expr.Eval(ctx)
	var right float64
	if c.Threshold != nil {
		right = c.Threshold.Eval(ctx)
	}
	return c.Compare.apply(left, right) != c.Negate
}

// EvalConditions reports whether any clause of conds holds. An empty list
// always holds.
func EvalConditions(conds []Condition, ctx *Context) bool {
	clause := true
	for i, c := range conds {
		if c.GroupStart && i > 0 {
			if clause {
				return true
			}
			clause = true
		}
		if clause && !c.Eval(ctx) {
			clause = false
		}
	}
	return clause
}

// NormalizeCondition flattens a boolean tree into disjunctive normal form,
// pushing negations down to the terms. A nil tree yields no conditions.
func NormalizeCondition(n *Node) []Condition {
	if n == nil {
		return nil
	}
	var out []Condition
	for _, clause := range dnf(n, false) {
		for i, term := range clause {
			term.GroupStart = i == 0
			out = append(out, term)
		}
	}
	return out
}

func dnf(n *Node, negate bool) [][]Condition {
	switch n.Kind {
	case NodeNot:
		return dnf(n.Args[0], !negate)
	case NodeAnd, NodeOr:
		conjunction := (n.Kind == NodeAnd) != negate
		var result [][]Condition
		for i, a := range n.Args {
			sub := dnf(a, negate)
			switch {
			case i == 0:
				result = sub
			case conjunction:
				result = crossProduct(result, sub)
			default:
				result = append(result, sub...)
			}
		}
		return result
	case NodeCompare:
		return [][]Condition{{{
			Expr:      n.Args[0],
			Threshold: n.Args[1],
			Compare:   n.Compare,
			Negate:    negate,
		}}}
	}
	return [][]Condition{{{Expr: n, Compare: CompareTruthy, Negate: negate}}}
}

func crossProduct(a, b [][]Condition) [][]Condition {
	out := make([][]Condition, 0, len(a)*len(b))
	for _, x := range a {
		for _, y := range b {
			clause := make([]Condition, 0, len(x)+len(y))
			clause = append(clause, x...)
			clause = append(clause, y...)
			out = append(out, clause)
		}
	}
	return out
}

// conditionReferences returns the molecule and environment names read by
// a condition list.
func conditionReferences(conds []Condition) (molecules, environment []string) {
	for _, c := range conds {
		m, e := c.Expr.References()
		molecules = append(molecules, m...)
		environment = append(environment, e...)
		if c.Threshold != nil {
			m, e = c.Threshold.References()
			molecules = append(molecules, m...)
			environment = append(environment, e...)
		}
	}
	return molecules, environment
}
