package regex

import (
	"strconv"
	"strings"
)

// Node is a parsed pattern element. The set of implementations is closed:
// the matcher's type switch panics on anything it does not know.
type Node interface {
	node()
	String() string
}

// a single character
type Literal struct {
	Char rune
}

// \d
type Digit struct{}

// \w
type Alphanumeric struct{}

// .
type Wildcard struct{}

// [...] and [^...]
type CharGroup struct {
	Negate bool
	Chars  []rune
}

// ^
type Start struct{}

// $
type End struct{}

// OneOrMore repeats Node greedily. Next is the node that follows the
// repetition in its enclosing sequence, set by the parser; the matcher uses it
// to stop one repetition early when the following node would match the text
// just consumed.
type OneOrMore struct {
	Node Node
	Next Node
}

// ZeroOrOne never fails.
type ZeroOrOne struct {
	Node Node
}

type Sequence struct {
	Nodes []Node
}

// Group is a capturing alternation. Alternatives are tried in order and the
// first one that matches wins.
type Group struct {
	Alternatives []Node
	Index        int
}

// \1 ... \9
type GroupReference struct {
	Index int
}

func (*Literal) node()        {}
func (*Digit) node()          {}
func (*Alphanumeric) node()   {}
func (*Wildcard) node()       {}
func (*CharGroup) node()      {}
func (*Start) node()          {}
func (*End) node()            {}
func (*OneOrMore) node()      {}
func (*ZeroOrOne) node()      {}
func (*Sequence) node()       {}
func (*Group) node()          {}
func (*GroupReference) node() {}

func (n *Literal) String() string {
	if strings.ContainsRune(escapableLiterals, n.Char) {
		return `\` + string(n.Char)
	}
	return string(n.Char)
}

func (*Digit) String() string        { return `\d` }
func (*Alphanumeric) String() string { return `\w` }
func (*Wildcard) String() string     { return "." }
func (*Start) String() string        { return "^" }
func (*End) String() string          { return "$" }

func (n *CharGroup) String() string {
	if n.Negate {
		return "[^" + string(n.Chars) + "]"
	}
	return "[" + string(n.Chars) + "]"
}

func (n *OneOrMore) String() string { return n.Node.String() + "+" }
func (n *ZeroOrOne) String() string { return n.Node.String() + "?" }

func (n *Sequence) String() string {
	out := strings.Builder{}
	for _, c := range n.Nodes {
		out.WriteString(c.String())
	}
	return out.String()
}

func (n *Group) String() string {
	alternatives := make([]string, len(n.Alternatives))
	for i, alt := range n.Alternatives {
		alternatives[i] = alt.String()
	}
	return "(" + strings.Join(alternatives, "|") + ")"
}

func (n *GroupReference) String() string {
	return `\` + strconv.Itoa(n.Index)
}
