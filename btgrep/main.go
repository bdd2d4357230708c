package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/mfroeh/btgrep/regex"
)

const (
	exitMatch   = 0
	exitNoMatch = 1
	exitError   = 2
)

// lines longer than this make the search of a file fail
const maxLineLength = 64 * 1024 * 1024

type cli struct {
	// the only syntax there is, required like grep -E
	Extended     bool     `short:"E" required:"" help:"Interpret the pattern as an extended regular expression."`
	Recursive    bool     `short:"r" help:"Search directories recursively."`
	LineNumber   bool     `short:"n" help:"Prefix each line with its line number."`
	OnlyMatching bool     `short:"o" help:"Print only the matched parts of a line, one per line."`
	Count        bool     `short:"c" help:"Print the number of matching lines instead of the lines."`
	Color        string   `enum:"auto,always,never" default:"auto" env:"BTGREP_COLOR" help:"Highlight matches (${enum})."`
	Debug        bool     `help:"Log the parsed pattern."`
	Pattern      string   `arg:"" name:"pattern" help:"Regex pattern to use in search" type:"string"`
	Paths        []string `arg:"" optional:"" name:"path" help:"Files or directories to search, standard input if none" type:"path"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var (
		opts     cli
		exited   bool
		exitCode int
	)
	parser, err := kong.New(&opts,
		kong.Name("btgrep"),
		kong.Description("Prints lines matching a regex pattern."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) {
			exited = true
			exitCode = code
		}),
	)
	if err != nil {
		panic(err)
	}

	_, err = parser.Parse(args)
	if exited {
		return exitCode
	}
	if err != nil {
		parser.Errorf("%s", err)
		return exitError
	}

	logger := log.New(stderr, "btgrep: ", 0)

	re, err := regex.Compile(opts.Pattern)
	if err != nil {
		logger.Printf("%v", err)
		return exitNoMatch
	}
	if opts.Debug {
		logger.Printf("parsed %q:\n%s", re.String(), dumpNode(re.Root(), 1))
	}

	s := &searcher{
		re:      re,
		opts:    opts,
		out:     stdout,
		logger:  logger,
		palette: newPalette(useColor(opts.Color, stdout)),
		prefix:  opts.Recursive || len(opts.Paths) > 1,
	}

	if len(opts.Paths) == 0 {
		if err := s.search("(standard input)", stdin); err != nil {
			logger.Printf("%v", err)
			s.failed = true
		}
	}

	for _, path := range opts.Paths {
		info, err := os.Stat(path)
		if err != nil {
			logger.Printf("%v", err)
			s.failed = true
			continue
		}

		switch {
		case info.IsDir() && !opts.Recursive:
			logger.Printf("%s: is a directory", path)
			s.failed = true
			continue
		case info.IsDir():
			err = s.recursivelySearchDir(path)
		default:
			err = s.searchFile(path)
		}

		if err != nil {
			logger.Printf("%v", err)
			s.failed = true
		}
	}

	switch {
	case s.failed:
		return exitError
	case s.matched:
		return exitMatch
	}
	return exitNoMatch
}

func useColor(mode string, out io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := out.(*os.File)
	return ok && isatty.IsTerminal(f.Fd()) && os.Getenv("NO_COLOR") == ""
}

// the first color is used for a whole match, the others for its groups
func newPalette(enabled bool) []*color.Color {
	palette := []*color.Color{
		color.New(color.FgRed, color.Bold),
		color.New(color.FgGreen),
		color.New(color.FgYellow),
		color.New(color.FgBlue),
		color.New(color.FgMagenta),
		color.New(color.FgCyan),
	}
	for _, c := range palette {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return palette
}

type searcher struct {
	re      regex.Regex
	opts    cli
	out     io.Writer
	logger  *log.Logger
	palette []*color.Color
	// prefix lines with the name of the file they come from
	prefix bool

	matched bool
	failed  bool
}

func (s *searcher) recursivelySearchDir(path string) error {
	return filepath.WalkDir(path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		// follow symlinks, broken ones are ignored
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}

		// symlink may resolve to a directory, in which case we just ignore it
		if info.IsDir() {
			return nil
		}

		// unreadable files don't stop the walk
		if err := s.searchFile(path); err != nil {
			s.logger.Printf("%v", err)
			s.failed = true
		}
		return nil
	})
}

func (s *searcher) searchFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return s.search(path, f)
}

func (s *searcher) search(name string, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	count := 0
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		matches := s.re.FindAllSubmatches(line, -1)
		if len(matches) == 0 {
			continue
		}
		count++
		s.matched = true

		if s.opts.Count {
			continue
		}

		prefix := s.linePrefix(name, lineNo)
		if s.opts.OnlyMatching {
			for _, match := range matches {
				if match[0].Str == "" {
					continue
				}
				fmt.Fprintf(s.out, "%s%s\n", prefix, s.formatMatch(match))
			}
			continue
		}

		out := strings.Builder{}
		lastMatchEnd := 0
		for _, match := range matches {
			out.WriteString(line[lastMatchEnd:match[0].Offset])
			out.WriteString(s.formatMatch(match))
			lastMatchEnd = match[0].Offset + len(match[0].Str)
		}
		out.WriteString(line[lastMatchEnd:])
		fmt.Fprintf(s.out, "%s%s\n", prefix, out.String())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}

	if s.opts.Count {
		if s.prefix {
			fmt.Fprintf(s.out, "%s:%d\n", name, count)
		} else {
			fmt.Fprintf(s.out, "%d\n", count)
		}
	}
	return nil
}

func (s *searcher) linePrefix(name string, lineNo int) string {
	prefix := ""
	if s.prefix {
		prefix += name + ":"
	}
	if s.opts.LineNumber {
		prefix += fmt.Sprintf("%d:", lineNo)
	}
	return prefix
}

// formatMatch colors the whole match and, inside it, the groups that
// took part in it. Groups nested in an already colored group keep its color.
func (s *searcher) formatMatch(match []regex.Submatch) string {
	fullMatch := match[0].Str
	if len(match) == 1 || len(match) > len(s.palette) {
		return s.palette[0].Sprint(fullMatch)
	}

	out := strings.Builder{}
	paint := func(c *color.Color, text string) {
		if text != "" {
			out.WriteString(c.Sprint(text))
		}
	}
	matchOff := 0
	for i, sm := range match[1:] {
		offRelativeToMatch := sm.Offset - match[0].Offset
		if sm.Offset < 0 || offRelativeToMatch < matchOff || offRelativeToMatch+len(sm.Str) > len(fullMatch) {
			continue
		}
		paint(s.palette[0], fullMatch[matchOff:offRelativeToMatch])
		paint(s.palette[i+1], sm.Str)
		matchOff = offRelativeToMatch + len(sm.Str)
	}
	paint(s.palette[0], fullMatch[matchOff:])
	return out.String()
}

func dumpNode(n regex.Node, depth int) string {
	indent := strings.Repeat("  ", depth)
	switch n := n.(type) {
	case *regex.Sequence:
		out := indent + "sequence\n"
		for _, c := range n.Nodes {
			out += dumpNode(c, depth+1)
		}
		return out
	case *regex.Group:
		out := fmt.Sprintf("%sgroup %d\n", indent, n.Index)
		for _, alt := range n.Alternatives {
			out += dumpNode(alt, depth+1)
		}
		return out
	case *regex.OneOrMore:
		next := "-"
		if n.Next != nil {
			next = n.Next.String()
		}
		return fmt.Sprintf("%sone or more (next %s)\n", indent, next) + dumpNode(n.Node, depth+1)
	case *regex.ZeroOrOne:
		return indent + "zero or one\n" + dumpNode(n.Node, depth+1)
	}
	return fmt.Sprintf("%s%s\n", indent, n)
}
