package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"
)

func TestRun(t *testing.T) {
	tests := map[string]struct {
		givenArgs  []string
		givenStdin string
		wantOut    string
		wantCode   int
	}{
		"match": {
			givenArgs:  []string{"-E", "^abc"},
			givenStdin: "abcd\n",
			wantOut:    "abcd\n",
			wantCode:   exitMatch,
		},
		"no match": {
			givenArgs:  []string{"-E", "^abc"},
			givenStdin: "xabc\n",
			wantCode:   exitNoMatch,
		},
		"invalid pattern": {
			givenArgs:  []string{"-E", "(abc"},
			givenStdin: "(abc\n",
			wantCode:   exitNoMatch,
		},
		"missing -E": {
			givenArgs:  []string{"abc"},
			givenStdin: "abc\n",
			wantCode:   exitError,
		},
		"only matching lines are printed": {
			givenArgs:  []string{"-E", `(cat|dog) and \1`},
			givenStdin: "cat and cat\ncat and dog\ndog and dog\n",
			wantOut:    "cat and cat\ndog and dog\n",
			wantCode:   exitMatch,
		},
		"only matching": {
			givenArgs:  []string{"-E", "-o", `\d+`},
			givenStdin: "a12b3\nxyz\n",
			wantOut:    "12\n3\n",
			wantCode:   exitMatch,
		},
		"count": {
			givenArgs:  []string{"-E", "-c", "a"},
			givenStdin: "a\nb\na\n",
			wantOut:    "2\n",
			wantCode:   exitMatch,
		},
		"count without matches": {
			givenArgs:  []string{"-E", "-c", "z"},
			givenStdin: "a\n",
			wantOut:    "0\n",
			wantCode:   exitNoMatch,
		},
		"line numbers": {
			givenArgs:  []string{"-E", "-n", "b"},
			givenStdin: "a\nb\r\n",
			wantOut:    "2:b\n",
			wantCode:   exitMatch,
		},
		"line longer than the default scanner buffer": {
			givenArgs:  []string{"-E", "-c", "x$"},
			givenStdin: strings.Repeat("a", 100_000) + "x\nb\n",
			wantOut:    "1\n",
			wantCode:   exitMatch,
		},
		"empty line": {
			givenArgs:  []string{"-E", "-n", "^$"},
			givenStdin: "a\n\nb\n",
			wantOut:    "2:\n",
			wantCode:   exitMatch,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			// when
			var stdout, stderr bytes.Buffer
			gotCode := run(tt.givenArgs, strings.NewReader(tt.givenStdin), &stdout, &stderr)

			// then
			assert.Equal(t, tt.wantCode, gotCode, "stderr: %s", stderr.String())
			if d := cmp.Diff(tt.wantOut, stdout.String()); d != "" {
				t.Errorf("got diff (-want +got):\n%s", d)
			}
		})
	}
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	gotCode := run([]string{"--help"}, strings.NewReader(""), &stdout, &stderr)

	assert.Equal(t, exitMatch, gotCode)
	assert.Assert(t, strings.Contains(stdout.String(), "Usage: btgrep"), stdout.String())
}

func TestRunLogsErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	gotCode := run([]string{"-E", `a\q`}, strings.NewReader("a\n"), &stdout, &stderr)

	assert.Equal(t, exitNoMatch, gotCode)
	assert.Assert(t, strings.HasPrefix(stderr.String(), "btgrep: failed to construct regex"), stderr.String())
}

func TestRunDebug(t *testing.T) {
	var stdout, stderr bytes.Buffer
	gotCode := run([]string{"-E", "--debug", "(a+)b"}, strings.NewReader("aab\n"), &stdout, &stderr)

	assert.Equal(t, exitMatch, gotCode)
	want := `btgrep: parsed "(a+)b":
  sequence
    group 1
      one or more (next b)
        a
    b
`
	if d := cmp.Diff(want, stderr.String()); d != "" {
		t.Errorf("got diff (-want +got):\n%s", d)
	}
}

func TestRunColor(t *testing.T) {
	whole := color.New(color.FgRed, color.Bold)
	whole.EnableColor()
	group := color.New(color.FgGreen)
	group.EnableColor()

	t.Run("flag", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		gotCode := run([]string{"-E", "--color=always", "b"}, strings.NewReader("abc\n"), &stdout, &stderr)

		assert.Equal(t, exitMatch, gotCode)
		if d := cmp.Diff("a"+whole.Sprint("b")+"c\n", stdout.String()); d != "" {
			t.Errorf("got diff (-want +got):\n%s", d)
		}
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("BTGREP_COLOR", "always")
		var stdout, stderr bytes.Buffer
		gotCode := run([]string{"-E", "x(y)z"}, strings.NewReader("-xyz-\n"), &stdout, &stderr)

		assert.Equal(t, exitMatch, gotCode)
		want := "-" + whole.Sprint("x") + group.Sprint("y") + whole.Sprint("z") + "-\n"
		if d := cmp.Diff(want, stdout.String()); d != "" {
			t.Errorf("got diff (-want +got):\n%s", d)
		}
	})
}

func TestRunFiles(t *testing.T) {
	dir := t.TempDir()
	assert.NilError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("foo\nbar\n"), 0o644))
	assert.NilError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	assert.NilError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("foobar\nbaz\n"), 0o644))
	assert.NilError(t, os.Symlink(filepath.Join(dir, "missing"), filepath.Join(dir, "broken")))

	tests := map[string]struct {
		givenArgs []string
		wantOut   string
		wantCode  int
	}{
		"single file": {
			givenArgs: []string{"-E", "ba.", filepath.Join(dir, "a.txt")},
			wantOut:   "bar\n",
			wantCode:  exitMatch,
		},
		"several files": {
			givenArgs: []string{"-E", "-n", "^foo", filepath.Join(dir, "a.txt"), filepath.Join(dir, "sub", "b.txt")},
			wantOut:   filepath.Join(dir, "a.txt") + ":1:foo\n" + filepath.Join(dir, "sub", "b.txt") + ":1:foobar\n",
			wantCode:  exitMatch,
		},
		"recursive skips broken symlinks": {
			givenArgs: []string{"-E", "-r", "foo", dir},
			wantOut:   filepath.Join(dir, "a.txt") + ":foo\n" + filepath.Join(dir, "sub", "b.txt") + ":foobar\n",
			wantCode:  exitMatch,
		},
		"recursive count": {
			givenArgs: []string{"-E", "-r", "-c", "ba", dir},
			wantOut:   filepath.Join(dir, "a.txt") + ":1\n" + filepath.Join(dir, "sub", "b.txt") + ":2\n",
			wantCode:  exitMatch,
		},
		"directory without -r": {
			givenArgs: []string{"-E", "foo", dir},
			wantCode:  exitError,
		},
		"missing file": {
			givenArgs: []string{"-E", "foo", filepath.Join(dir, "nope.txt")},
			wantCode:  exitError,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			// when
			var stdout, stderr bytes.Buffer
			gotCode := run(tt.givenArgs, strings.NewReader(""), &stdout, &stderr)

			// then
			assert.Equal(t, tt.wantCode, gotCode, "stderr: %s", stderr.String())
			if d := cmp.Diff(tt.wantOut, stdout.String()); d != "" {
				t.Errorf("got diff (-want +got):\n%s", d)
			}
		})
	}
}
