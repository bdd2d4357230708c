package regex

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// nesting limit for matchHere, deeper attempts fail instead of growing the stack
const maxDepth = 10000

// Match is the text consumed by a node, starting at byte Offset of the input,
// together with every group captured while consuming it.
type Match struct {
	Offset     int
	Text       string
	Submatches map[int]Match
}

// merge extends m by other, which starts where m ends in the input in.
// Submatches of other win over those of m.
func (m Match) merge(other Match, in string) Match {
	out := Match{Offset: m.Offset, Text: in[m.Offset:other.end()]}
	if len(m.Submatches) == 0 && len(other.Submatches) == 0 {
		return out
	}
	out.Submatches = make(map[int]Match, len(m.Submatches)+len(other.Submatches))
	maps.Copy(out.Submatches, m.Submatches)
	maps.Copy(out.Submatches, other.Submatches)
	return out
}

func (m Match) end() int {
	return m.Offset + len(m.Text)
}

// captures maps group indices to the text they captured so far. A table is
// never modified after it has been handed to matchHere, with returns a copy.
type captures map[int]string

func (c captures) with(m Match) captures {
	if len(m.Submatches) == 0 {
		return c
	}
	next := make(captures, len(c)+len(m.Submatches))
	maps.Copy(next, c)
	for i, sm := range m.Submatches {
		next[i] = sm.Text
	}
	return next
}

type matcher struct {
	in    string
	depth int
}

// search tries to match n at every offset of in, including len(in) when
// withEnd is set, and returns the first match.
func search(n Node, in string, withEnd bool) (Match, bool) {
	m := &matcher{in: in}
	for i := 0; i < len(in) || (withEnd && i == len(in)); {
		if match, ok := m.matchHere(n, i, nil); ok {
			return match, true
		}
		if i == len(in) {
			break
		}
		_, w := utf8.DecodeRuneInString(in[i:])
		i += w
	}
	return Match{}, false
}

func (m *matcher) matchHere(n Node, i int, caps captures) (Match, bool) {
	if m.depth >= maxDepth {
		return Match{}, false
	}
	m.depth++
	defer func() { m.depth-- }()

	switch n := n.(type) {
	case *Literal:
		return m.matchRune(i, func(r rune) bool { return r == n.Char })
	case *Digit:
		return m.matchRune(i, unicode.IsNumber)
	case *Alphanumeric:
		return m.matchRune(i, isAlphanumeric)
	case *Wildcard:
		return m.matchRune(i, func(rune) bool { return true })
	case *CharGroup:
		return m.matchRune(i, func(r rune) bool { return slices.Contains(n.Chars, r) != n.Negate })
	case *Start:
		return Match{Offset: i}, i == 0
	case *End:
		return Match{Offset: i}, i == len(m.in)
	case *Sequence:
		return m.matchSequence(n, i, caps)
	case *ZeroOrOne:
		if match, ok := m.matchHere(n.Node, i, caps); ok {
			return match, true
		}
		return Match{Offset: i}, true
	case *OneOrMore:
		return m.matchOneOrMore(n, i, caps)
	case *Group:
		return m.matchGroup(n, i, caps)
	case *GroupReference:
		text, ok := caps[n.Index]
		if !ok || !strings.HasPrefix(m.in[i:], text) {
			return Match{}, false
		}
		return Match{Offset: i, Text: text}, true
	default:
		panic(fmt.Sprintf("unexpected node type %T", n))
	}
}

func (m *matcher) matchRune(i int, pred func(rune) bool) (Match, bool) {
	if i >= len(m.in) {
		return Match{}, false
	}
	r, w := utf8.DecodeRuneInString(m.in[i:])
	if !pred(r) {
		return Match{}, false
	}
	return Match{Offset: i, Text: m.in[i : i+w]}, true
}

func (m *matcher) matchSequence(n *Sequence, i int, caps captures) (Match, bool) {
	acc := Match{Offset: i}
	for _, c := range n.Nodes {
		match, ok := m.matchHere(c, acc.end(), caps)
		if !ok {
			return Match{}, false
		}
		acc = acc.merge(match, m.in)
		caps = caps.with(match)
	}
	return acc, true
}

// matchOneOrMore repeats greedily, but gives back the latest repetition as
// soon as n.Next alone would match the text of that repetition. This backs off
// at most one step, patterns needing more than that can fail to match.
func (m *matcher) matchOneOrMore(n *OneOrMore, i int, caps captures) (Match, bool) {
	acc := Match{Offset: i}
	reps := 0
	for {
		match, ok := m.matchHere(n.Node, acc.end(), caps)
		if !ok {
			break
		}
		if reps > 0 && n.Next != nil {
			if _, ok := search(n.Next, match.Text, false); ok {
				break
			}
		}
		acc = acc.merge(match, m.in)
		caps = caps.with(match)
		reps++
		// repeating a zero width match would loop forever
		if len(match.Text) == 0 {
			break
		}
	}
	return acc, reps > 0
}

func (m *matcher) matchGroup(n *Group, i int, caps captures) (Match, bool) {
	for _, alt := range n.Alternatives {
		match, ok := m.matchHere(alt, i, caps)
		if !ok {
			continue
		}
		out := Match{Offset: i, Text: match.Text, Submatches: make(map[int]Match, len(match.Submatches)+1)}
		maps.Copy(out.Submatches, match.Submatches)
		out.Submatches[n.Index] = match
		return out, true
	}
	return Match{}, false
}

func isAlphanumeric(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}
