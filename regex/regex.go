// Package regex implements a small backtracking regular expression engine
// for grep style line matching.
//
// Supported syntax: literals, '.', \d, \w, [...], [^...], ^, $, + and ?,
// capturing groups with alternation (a|b) and backreferences \1 to \9.
package regex

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Regex struct {
	root   Node
	expr   string
	groups int
}

type Submatch struct {
	Offset int
	Str    string
}

func Compile(re string) (Regex, error) {
	root, next, err := parse([]rune(re), 0, 1)
	if err != nil {
		return Regex{}, fmt.Errorf("failed to construct regex from %q: %w", re, err)
	}
	return Regex{
		root:   root,
		expr:   re,
		groups: next - 1,
	}, nil
}

// MustCompile is like Compile but panics if the expression cannot be parsed.
func MustCompile(re string) Regex {
	r, err := Compile(re)
	if err != nil {
		panic(fmt.Sprintf("regex: Compile(%q): %v", re, err))
	}
	return r
}

// MatchLine compiles pattern and reports whether it matches line.
// A pattern that does not compile matches nothing.
func MatchLine(pattern, line string) bool {
	re, err := Compile(pattern)
	if err != nil {
		return false
	}
	return re.Match(line)
}

func (re Regex) String() string {
	return re.expr
}

// Root returns the parsed pattern.
func (re Regex) Root() Node {
	return re.root
}

// NumGroups returns the number of capturing groups.
func (re Regex) NumGroups() int {
	return re.groups
}

func (re Regex) Match(s string) bool {
	_, ok := search(re.root, s, true)
	return ok
}

// FindAllSubmatches finds up to maxCount non-overlapping matches in the given string.
// To return all matches pass a maxCount of -1.
// Element 0 of every match is the whole match, element i is group i. Groups
// that did not take part in a match have an Offset of -1.
func (re Regex) FindAllSubmatches(s string, maxCount int) [][]Submatch {
	var allSubmatches [][]Submatch
	m := &matcher{in: s}
	for i := 0; i <= len(s); {
		if maxCount != -1 && len(allSubmatches) >= maxCount {
			return allSubmatches
		}

		match, ok := m.matchHere(re.root, i, nil)
		if ok {
			allSubmatches = append(allSubmatches, re.submatches(match))
			if len(match.Text) > 0 {
				i = match.end()
				continue
			}
		}

		if i == len(s) {
			break
		}
		_, w := utf8.DecodeRuneInString(s[i:])
		i += w
	}
	return allSubmatches
}

func (re Regex) FindSubmatch(s string) []Submatch {
	submatch := re.FindAllSubmatches(s, 1)
	if len(submatch) < 1 {
		return nil
	}
	return submatch[0]
}

func (re Regex) submatches(match Match) []Submatch {
	submatches := make([]Submatch, re.groups+1)
	submatches[0] = Submatch{Offset: match.Offset, Str: match.Text}
	for i := 1; i <= re.groups; i++ {
		sm, ok := match.Submatches[i]
		if !ok {
			submatches[i] = Submatch{Offset: -1}
			continue
		}
		submatches[i] = Submatch{Offset: sm.Offset, Str: sm.Text}
	}
	return submatches
}

// Replace replaces the first match in s with with, in which $N stands for
// the text of group N and $0 for the whole match.
func (re Regex) Replace(s string, with string) string {
	submatches := re.FindSubmatch(s)
	if submatches == nil {
		return s
	}

	out := strings.Builder{}
	out.WriteString(s[:submatches[0].Offset])
	for i := 0; i < len(with); i++ {
		if with[i] == '$' && i+1 < len(with) && unicode.IsDigit(rune(with[i+1])) {
			num := 0
			for j := i + 1; j < len(with) && unicode.IsDigit(rune(with[j])); j++ {
				// past the last group the digits only need consuming
				if num <= len(submatches) {
					num = num*10 + int(with[j]-'0')
				}
				i++
			}

			if num >= 0 && num < len(submatches) {
				out.WriteString(submatches[num].Str)
			}
		} else {
			out.WriteByte(with[i])
		}
	}
	out.WriteString(s[submatches[0].Offset+len(submatches[0].Str):])
	return out.String()
}
