// Golden-file harness: runs every case under testdata/cases through
// the interpreter and compares stdout, diagnostics, and exit code with
// the recorded .out/.err/.code files next to each .yc source.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"yc/errs"
	"yc/interp"
	"yc/lexer"
	"yc/parser"
)

type TestCase struct {
	Name     string
	Expected *TestResult
	Actual   *TestResult
}

type TestResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

type TestSuite struct {
	Name  string
	Cases []TestCase
}

type TestFramework struct {
	Root   string
	Suites []*TestSuite
	Total  int
	Failed []*TestCase
}

var (
	noFailStderr = flag.Bool("no-fail-stderr", false, "Stderr mis-match is not a failure.")
	casesDir     = flag.String("cases", "testdata/cases", "Directory holding the test cases.")
)

func main() {
	flag.Parse()

	tf := TestFramework{Root: *casesDir}

	tf.collectSuites()
	slices.SortFunc(tf.Suites, func(a, b *TestSuite) int {
		return strings.Compare(a.Name, b.Name)
	})

	tf.executeTests()
	tf.summarize()

	if len(tf.Failed) > 0 {
		os.Exit(1)
	}
}

/* Collect the tests from the files and directories under the cases
 * root. These only collect one level deep; there are no nested suites.
 */
func (tf *TestFramework) collectSuites() {
	suites := []*TestSuite{}
	topLevel := TestSuite{Name: "Top Level"}

	for _, entry := range getEntries(tf.Root) {
		if entry.IsDir() {
			suites = append(suites, collectSuite(path.Join(tf.Root, entry.Name())))
		} else if strings.HasSuffix(entry.Name(), ".yc") {
			topLevel.Cases = append(topLevel.Cases, TestCase{Name: entry.Name()})
		}
	}

	suites = append(suites, &topLevel)
	tf.Suites = suites
}

func getEntries(dir string) []fs.DirEntry {
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading %s: %v\n", dir, err)
		os.Exit(1)
	}
	return entries
}

func collectSuite(dir string) *TestSuite {
	suite := &TestSuite{Name: path.Base(dir)}
	for _, entry := range getEntries(dir) {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".yc") {
			suite.Cases = append(suite.Cases, TestCase{Name: entry.Name()})
		}
	}
	return suite
}

const WIDTH = 120

func (tf *TestFramework) executeTests() {
	first := true

	for _, suite := range tf.Suites {
		if len(suite.Cases) == 0 {
			continue
		}

		if first {
			first = false
		} else {
			fmt.Println()
		}

		columns := fmt.Sprintf("%12s", "duration")
		spacing := strings.Repeat(" ", WIDTH-len(suite.Name)-len(columns))
		fmt.Printf("%s%s%s\n", suite.Name, spacing, columns)

		for i := range suite.Cases {
			testPath := path.Join(tf.Root, suite.Name, suite.Cases[i].Name)
			if suite.Name == "Top Level" {
				testPath = path.Join(tf.Root, suite.Cases[i].Name)
			}

			tc := &suite.Cases[i]

			expected := readGolden(testPath)
			actual := executeTest(testPath)
			tc.Expected = &expected
			tc.Actual = &actual

			tf.Total++
			if tc.report() {
				tf.Failed = append(tf.Failed, tc)
			}
		}
	}
}

// readGolden loads the recorded outputs beside a case: <name>.out for
// stdout, <name>.err for diagnostics, <name>.code for the exit code
// (0 when absent).
func readGolden(testPath string) TestResult {
	base := strings.TrimSuffix(testPath, ".yc")

	result := TestResult{}
	if out, err := os.ReadFile(base + ".out"); err == nil {
		result.Stdout = string(out)
	}
	if errOut, err := os.ReadFile(base + ".err"); err == nil {
		result.Stderr = string(errOut)
	}
	if code, err := os.ReadFile(base + ".code"); err == nil {
		result.ExitCode, _ = strconv.Atoi(strings.TrimSpace(string(code)))
	}
	return result
}

// executeTest runs a case in-process and reports the outputs the CLI
// would produce, including its exit-code convention.
func executeTest(testPath string) TestResult {
	stdout := strings.Builder{}

	start := time.Now()
	err := runSource(testPath, &stdout)
	duration := time.Since(start)

	result := TestResult{Stdout: stdout.String(), Duration: duration}
	if err != nil {
		result.Stderr = err.Error() + "\n"
		result.ExitCode = 70
		var ycErr *errs.Error
		if errors.As(err, &ycErr) && !ycErr.Runtime() {
			result.ExitCode = 65
		}
	}
	return result
}

func runSource(path string, stdout *strings.Builder) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	toks, err := lexer.New(string(contents)).Scan()
	if err != nil {
		return err
	}
	prog, err := parser.New(toks).Parse()
	if err != nil {
		return err
	}

	in := interp.New(stdout)
	in.Loader = func(p string) (string, error) {
		contents, err := os.ReadFile(p)
		return string(contents), err
	}
	return in.Run(prog)
}

// Reporting. Every case gets a one-line status; a failing case is
// followed by a framed block naming what differed, with golden and
// observed text in two columns.

const gutter = WIDTH / 2

func (tc *TestCase) passed() bool {
	if tc.Expected.ExitCode != tc.Actual.ExitCode {
		return false
	}
	if tc.Expected.Stdout != tc.Actual.Stdout {
		return false
	}
	return *noFailStderr || tc.Expected.Stderr == tc.Actual.Stderr
}

// report prints the case's status line plus failure details; it
// returns whether the case failed.
func (tc *TestCase) report() bool {
	ok := tc.passed()

	status := color.RedString("failed")
	if ok {
		status = color.GreenString("passed")
	}
	timing := fmt.Sprintf("%12s", tc.Actual.Duration)
	pad := max(WIDTH-len("  [failed] ")-len(tc.Name)-len(timing), 1)
	fmt.Printf("  [%s] %s%s%s\n", status, tc.Name, strings.Repeat(" ", pad), timing)

	if ok {
		return false
	}

	frame := strings.Repeat("-", WIDTH)
	fmt.Println(frame)
	if tc.Expected.ExitCode != tc.Actual.ExitCode {
		fmt.Printf("exit code: want %d, got %d\n", tc.Expected.ExitCode, tc.Actual.ExitCode)
	}
	if tc.Expected.Stdout != tc.Actual.Stdout {
		twoColumn("stdout", tc.Expected.Stdout, tc.Actual.Stdout)
	}
	if !*noFailStderr && tc.Expected.Stderr != tc.Actual.Stderr {
		twoColumn("stderr", tc.Expected.Stderr, tc.Actual.Stderr)
	}
	fmt.Println(frame)
	return true
}

// twoColumn lays the golden text beside the observed text, one line
// per row. A golden line longer than the gutter is clipped so the
// right column stays aligned.
func twoColumn(stream, want, got string) {
	fmt.Printf("%-*s%s\n", gutter, "golden "+stream, "actual "+stream)

	wantLines := strings.Split(want, "\n")
	gotLines := strings.Split(got, "\n")
	for i := 0; i < max(len(wantLines), len(gotLines)); i++ {
		var left, right string
		if i < len(wantLines) {
			left = wantLines[i]
		}
		if i < len(gotLines) {
			right = gotLines[i]
		}
		if len(left) >= gutter {
			left = left[:gutter-1]
		}
		fmt.Printf("%-*s%s\n", gutter, left, right)
	}
}

func (tf *TestFramework) summarize() {
	fmt.Println()
	fmt.Println(strings.Repeat("=", WIDTH))
	fmt.Printf("%d cases, %d passed, %d failed\n",
		tf.Total, tf.Total-len(tf.Failed), len(tf.Failed))
	for _, tc := range tf.Failed {
		fmt.Println("  failed: " + tc.Name)
	}
}
