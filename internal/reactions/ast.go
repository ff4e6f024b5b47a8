package reactions

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NodeKind tags the variant held by a Node.
type NodeKind uint8

const (
	NodeLiteral     NodeKind = iota // Value
	NodeMolecule                    // cell-local count of Name
	NodeEnvironment                 // environment concentration of Name
	NodeParameter                   // simulation parameter Name
	NodeUnary                       // Op(Args[0])
	NodeBinary                      // Op(Args[0], Args[1])
	NodeTernary                     // Op(Args[0], Args[1], Args[2])
	NodeCompare                     // Compare(Args[0], Args[1])
	NodeAnd
	NodeOr
	NodeNot
)

// Op identifies an arithmetic operator or function.
type Op uint8

const (
	OpNone Op = iota

	// unary
	OpNeg
	OpSin
	OpCos
	OpTan
	OpAsin
	OpAcos
	OpAtan
	OpSinh
	OpCosh
	OpTanh
	OpSqrt
	OpCbrt
	OpExp
	OpLog
	OpLn
	OpLog2
	OpSgn
	OpAbs
	OpGamma
	OpFloor
	OpCeil

	// binary
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpPow
	OpMin
	OpMax
	OpAtan2
	OpHill

	// ternary
	OpHillK
)

var opNames = map[Op]string{
	OpNeg: "-", OpSin: "sin", OpCos: "cos", OpTan: "tan", OpAsin: "asin",
	OpAcos: "acos", OpAtan: "atan", OpSinh: "sinh", OpCosh: "cosh",
	OpTanh: "tanh", OpSqrt: "sqrt", OpCbrt: "cbrt", OpExp: "exp",
	OpLog: "log", OpLn: "ln", OpLog2: "log2", OpSgn: "sgn", OpAbs: "abs",
	OpGamma: "gamma", OpFloor: "floor", OpCeil: "ceil",
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpPow: "^",
	OpMin: "min", OpMax: "max", OpAtan2: "atan2", OpHill: "hill",
	OpHillK: "hill",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", o)
}

// CompareKind is the relational operator of a comparison or condition term.
type CompareKind uint8

const (
	CompareTruthy CompareKind = iota // left != 0
	CompareLess
	CompareLessEqual
	CompareGreater
	CompareGreaterEqual
	CompareEqual
	CompareNotEqual
)

var compareNames = map[CompareKind]string{
	CompareTruthy:       "truthy",
	CompareLess:         "<",
	CompareLessEqual:    "<=",
	CompareGreater:      ">",
	CompareGreaterEqual: ">=",
	CompareEqual:        "=",
	CompareNotEqual:     "!=",
}

func (k CompareKind) String() string {
	if name, ok := compareNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Compare(%d)", k)
}

// apply evaluates the comparison for two operands.
func (k CompareKind) apply(left, right float64) bool {
	switch k {
	case CompareLess:
		return left < right
	case CompareLessEqual:
		return left <= right
	case CompareGreater:
		return left > right
	case CompareGreaterEqual:
		return left >= right
	case CompareEqual:
		return left == right
	case CompareNotEqual:
		return left != right
	}
	return left != 0
}

// Node is one vertex of a rate or condition syntax tree.
type Node struct {
	Kind    NodeKind
	Op      Op
	Compare CompareKind
	Value   float64
	Name    string
	Args    []*Node
}

// Literal returns a constant node.
func Literal(v float64) *Node {
	return &Node{Kind: NodeLiteral, Value: v}
}

// MoleculeRef returns a node reading the cell-local count of name.
func MoleculeRef(name string) *Node {
	return &Node{Kind: NodeMolecule, Name: name}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Eval evaluates the tree against ctx. Boolean nodes produce 1 or 0.
func (n *Node) Eval(ctx *Context) float64 {
	switch n.Kind {
	case NodeLiteral:
		return n.Value
	case NodeMolecule:
		return ctx.MoleculeCount(n.Name)
	case NodeEnvironment:
		return ctx.EnvConcentration(n.Name)
	case NodeParameter:
		return ctx.Parameter(n.Name)
	case NodeUnary:
		return evalUnary(n.Op, n.Args[0].Eval(ctx))
	case NodeBinary:
		return evalBinary(n.Op, n.Args[0].Eval(ctx), n.Args[1].Eval(ctx))
	case NodeTernary:
		x, k, h := n.Args[0].Eval(ctx), n.Args[1].Eval(ctx), n.Args[2].Eval(ctx)
		xn := math.Pow(x, h)
		return xn / (math.Pow(k, h) + xn)
	case NodeCompare:
		return boolValue(n.Compare.apply(n.Args[0].Eval(ctx), n.Args[1].Eval(ctx)))
	case NodeAnd:
		for _, a := range n.Args {
			if a.Eval(ctx) == 0 {
				return 0
			}
		}
		return 1
	case NodeOr:
		for _, a := range n.Args {
			if a.Eval(ctx) != 0 {
				return 1
			}
		}
		return 0
	case NodeNot:
		return boolValue(n.Args[0].Eval(ctx) == 0)
	}
	panic(fmt.Sprintf("reactions: unknown node kind %d", n.Kind))
}

func evalUnary(op Op, x float64) float64 {
	switch op {
	case OpNeg:
		return -x
	case OpSin:
		return math.Sin(x)
	case OpCos:
		return math.Cos(x)
	case OpTan:
		return math.Tan(x)
	case OpAsin:
		return math.Asin(x)
	case OpAcos:
		return math.Acos(x)
	case OpAtan:
		return math.Atan(x)
	case OpSinh:
		return math.Sinh(x)
	case OpCosh:
		return math.Cosh(x)
	case OpTanh:
		return math.Tanh(x)
	case OpSqrt:
		return math.Sqrt(x)
	case OpCbrt:
		return math.Cbrt(x)
	case OpExp:
		return math.Exp(x)
	case OpLog:
		return math.Log10(x)
	case OpLn:
		return math.Log(x)
	case OpLog2:
		return math.Log2(x)
	case OpSgn:
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		}
		return 0
	case OpAbs:
		return math.Abs(x)
	case OpGamma:
		return math.Gamma(x)
	case OpFloor:
		return math.Floor(x)
	case OpCeil:
		return math.Ceil(x)
	}
	panic(fmt.Sprintf("reactions: %s is not a unary operator", op))
}

func evalBinary(op Op, a, b float64) float64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		return a / b
	case OpPow:
		return math.Pow(a, b)
	case OpMin:
		return math.Min(a, b)
	case OpMax:
		return math.Max(a, b)
	case OpAtan2:
		return math.Atan2(a, b)
	case OpHill:
		an := math.Pow(a, b)
		return an / (1 + an)
	}
	panic(fmt.Sprintf("reactions: %s is not a binary operator", op))
}

// Walk calls fn for n and every descendant, parents first.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, a := range n.Args {
		a.Walk(fn)
	}
}

// References returns the distinct molecule and environment names read by
// the tree.
func (n *Node) References() (molecules, environment []string) {
	seenMol := map[string]bool{}
	seenEnv := map[string]bool{}
	n.Walk(func(c *Node) {
		switch c.Kind {
		case NodeMolecule:
			if !seenMol[c.Name] {
				seenMol[c.Name] = true
				molecules = append(molecules, c.Name)
			}
		case NodeEnvironment:
			if !seenEnv[c.Name] {
				seenEnv[c.Name] = true
				environment = append(environment, c.Name)
			}
		}
	})
	return molecules, environment
}

// IsConstant reports whether the tree reads no live value.
func (n *Node) IsConstant() bool {
	constant := true
	n.Walk(func(c *Node) {
		switch c.Kind {
		case NodeMolecule, NodeEnvironment, NodeParameter:
			constant = false
		}
	})
	return constant
}

func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder) {
	switch n.Kind {
	case NodeLiteral:
		sb.WriteString(strconv.FormatFloat(n.Value, 'g', -1, 64))
	case NodeMolecule, NodeParameter:
		sb.WriteString(n.Name)
	case NodeEnvironment:
		sb.WriteString("env(" + n.Name + ")")
	case NodeUnary:
		if n.Op == OpNeg {
			sb.WriteString("-")
			n.Args[0].write(sb)
			return
		}
		writeCall(sb, n.Op.String(), n.Args)
	case NodeBinary:
		switch n.Op {
		case OpAdd, OpSub, OpMul, OpDiv, OpPow:
			sb.WriteString("(")
			n.Args[0].write(sb)
			sb.WriteString(" " + n.Op.String() + " ")
			n.Args[1].write(sb)
			sb.WriteString(")")
		default:
			writeCall(sb, n.Op.String(), n.Args)
		}
	case NodeTernary:
		writeCall(sb, n.Op.String(), n.Args)
	case NodeCompare:
		sb.WriteString("(")
		n.Args[0].write(sb)
		sb.WriteString(" " + n.Compare.String() + " ")
		n.Args[1].write(sb)
		sb.WriteString(")")
	case NodeAnd, NodeOr:
		sep := " and "
		if n.Kind == NodeOr {
			sep = " or "
		}
		sb.WriteString("(")
		for i, a := range n.Args {
			if i > 0 {
				sb.WriteString(sep)
			}
			a.write(sb)
		}
		sb.WriteString(")")
	case NodeNot:
		sb.WriteString("not ")
		n.Args[0].write(sb)
	}
}

func writeCall(sb *strings.Builder, name string, args []*Node) {
	sb.WriteString(name + "(")
	for i, a := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		a.write(sb)
	}
	sb.WriteString(")")
}
