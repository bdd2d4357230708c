package regex

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnexpectedEndOfPattern = errors.New("unexpected end of pattern")
	ErrInvalidEscape          = errors.New("invalid escape")
	ErrInvalidBackreference   = errors.New("invalid backreference")
	ErrEmptyAlternation       = errors.New("empty alternation")
	ErrUnmatchedParenthesis   = errors.New("unmatched parenthesis")
	ErrDanglingQuantifier     = errors.New("dangling quantifier")
	ErrEmptyPattern           = errors.New("empty pattern")
)

// characters that are matched literally when preceded by '\'. Besides the
// quantifiers and openers this takes ')' '|' '^' and '$', so that a group can
// contain them literally; splitAlternatives skips over any escaped character.
const escapableLiterals = `\+?.[()|^$`

type parserError struct {
	inner   error
	message string
}

func (p parserError) Error() string {
	return p.message
}

func (p parserError) Unwrap() error {
	return p.inner
}

func newParserError(i int, str string, inner error) parserError {
	return parserError{message: fmt.Sprintf("parser error at %d: %s: %s", i, inner, str), inner: inner}
}

type parser struct {
	pattern []rune
	pos     int
	// offset of pattern within the full pattern, only used for error positions
	origin int
	// next group index to hand out
	nextIndex int
}

// Parse parses pattern into an AST, numbering capturing groups from 1.
func Parse(pattern string) (Node, error) {
	n, _, err := parse([]rune(pattern), 0, 1)
	return n, err
}

// parse returns the AST together with the next unused group index, so that
// callers parsing sibling alternatives can continue numbering from there.
func parse(pattern []rune, origin, nextIndex int) (Node, int, error) {
	p := &parser{pattern: pattern, origin: origin, nextIndex: nextIndex}
	n, err := p.parse()
	if err != nil {
		return nil, 0, err
	}
	return n, p.nextIndex, nil
}

func (p *parser) parse() (Node, error) {
	var nodes []Node
	for p.pos < len(p.pattern) {
		var (
			n   Node
			err error
		)
		switch c := p.pattern[p.pos]; c {
		case '\\':
			n, err = p.parseEscape()
		case '[':
			n, err = p.parseCharGroup()
		case '(':
			n, err = p.parseGroup()
		case '^':
			p.pos++
			n = &Start{}
		case '$':
			p.pos++
			n = &End{}
		case '+', '?':
			if len(nodes) == 0 {
				return nil, p.errorf(p.pos, ErrDanglingQuantifier, "%q has nothing to repeat", c)
			}
			p.pos++
			prev := nodes[len(nodes)-1]
			nodes = nodes[:len(nodes)-1]
			if c == '+' {
				n = &OneOrMore{Node: prev}
			} else {
				n = &ZeroOrOne{Node: prev}
			}
		case '.':
			p.pos++
			n = &Wildcard{}
		default:
			p.pos++
			n = &Literal{Char: c}
		}
		if err != nil {
			return nil, err
		}

		if len(nodes) > 0 {
			setNext(nodes[len(nodes)-1], n)
		}
		nodes = append(nodes, n)
	}

	switch len(nodes) {
	case 0:
		return nil, p.errorf(p.pos, ErrEmptyPattern, "nothing to match")
	case 1:
		return nodes[0], nil
	}
	return &Sequence{Nodes: nodes}, nil
}

// setNext tells every repetition that ends n what comes after it. next is
// shared, not copied: when next is a repetition itself it later gets its own
// Next, so in a+b+c the hint of a+ is b+ followed by c.
func setNext(n Node, next Node) {
	switch n := n.(type) {
	case *OneOrMore:
		n.Next = next
		setNext(n.Node, next)
	case *ZeroOrOne:
		setNext(n.Node, next)
	case *Group:
		for _, alt := range n.Alternatives {
			setNext(alt, next)
		}
	case *Sequence:
		setNext(n.Nodes[len(n.Nodes)-1], next)
	}
}

// \d, \w, \1 and escaped meta characters
func (p *parser) parseEscape() (Node, error) {
	start := p.pos
	// pop off '\'
	p.pos++
	if p.pos >= len(p.pattern) {
		return nil, p.errorf(start, ErrUnexpectedEndOfPattern, "trailing '\\'")
	}

	c := p.pattern[p.pos]
	p.pos++
	switch {
	case c == 'd':
		return &Digit{}, nil
	case c == 'w':
		return &Alphanumeric{}, nil
	case strings.ContainsRune(escapableLiterals, c):
		return &Literal{Char: c}, nil
	case c >= '0' && c <= '9':
		index := int(c - '0')
		if index < 1 || index >= p.nextIndex {
			return nil, p.errorf(start, ErrInvalidBackreference, "group %d has not been opened", index)
		}
		return &GroupReference{Index: index}, nil
	}
	return nil, p.errorf(start, ErrInvalidEscape, "'\\%c'", c)
}

// [...] and [^...]
// characters are taken literally, the first one even if it is ']'
// a missing ']' is tolerated, the group then extends to the end of the pattern
func (p *parser) parseCharGroup() (Node, error) {
	start := p.pos
	// pop off '['
	p.pos++

	negate := p.pos < len(p.pattern) && p.pattern[p.pos] == '^'
	if negate {
		p.pos++
	}
	if p.pos >= len(p.pattern) {
		return nil, p.errorf(start, ErrUnexpectedEndOfPattern, "character group without members")
	}

	end := charGroupEnd(p.pattern, start)
	membersEnd := end
	if end-1 > p.pos && p.pattern[end-1] == ']' {
		membersEnd = end - 1
	}

	chars := make([]rune, membersEnd-p.pos)
	copy(chars, p.pattern[p.pos:membersEnd])
	p.pos = end
	return &CharGroup{Negate: negate, Chars: chars}, nil
}

// charGroupEnd returns the position right after the character group opened at i.
func charGroupEnd(pattern []rune, i int) int {
	// pop off '['
	i++
	if i < len(pattern) && pattern[i] == '^' {
		i++
	}
	// first member, may be ']'
	if i < len(pattern) {
		i++
	}
	for ; i < len(pattern); i++ {
		if pattern[i] == ']' {
			return i + 1
		}
	}
	return len(pattern)
}

// (...|...|...)
func (p *parser) parseGroup() (Node, error) {
	alternatives, end, err := p.splitAlternatives()
	if err != nil {
		return nil, err
	}

	// the group takes its index before any group nested in it
	group := &Group{Index: p.nextIndex}
	p.nextIndex++

	for _, alt := range alternatives {
		n, next, err := parse(p.pattern[alt.from:alt.to], p.origin+alt.from, p.nextIndex)
		if err != nil {
			return nil, err
		}
		p.nextIndex = next
		group.Alternatives = append(group.Alternatives, n)
	}

	p.pos = end
	return group, nil
}

type span struct {
	from int
	to   int
}

// splitAlternatives splits the group opened at the current position into its
// top level alternatives and returns the position right after the closing ')'.
func (p *parser) splitAlternatives() ([]span, int, error) {
	var alternatives []span
	depth := 0
	from := p.pos + 1
	for i := p.pos; i < len(p.pattern); i++ {
		switch p.pattern[i] {
		case '\\':
			i++
		case '[':
			i = charGroupEnd(p.pattern, i) - 1
		case '(':
			depth++
		case ')':
			depth--
			if depth > 0 {
				continue
			}
			if i == from {
				return nil, 0, p.errorf(i, ErrEmptyAlternation, "empty alternative before ')'")
			}
			return append(alternatives, span{from: from, to: i}), i + 1, nil
		case '|':
			if depth != 1 {
				continue
			}
			if i == from {
				return nil, 0, p.errorf(i, ErrEmptyAlternation, "empty alternative before '|'")
			}
			alternatives = append(alternatives, span{from: from, to: i})
			from = i + 1
		}
	}
	return nil, 0, p.errorf(p.pos, ErrUnmatchedParenthesis, "did not find closing ')'")
}

func (p *parser) errorf(i int, kind error, format string, args ...any) parserError {
	return newParserError(p.origin+i, fmt.Sprintf(format, args...), kind)
}
