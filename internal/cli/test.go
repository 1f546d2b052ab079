package cli

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rahulclufox/EpubViewerKit/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool
	Filter string // glob over scenario file names, without extension
}

// ScenarioReport is the outcome of one scenario file.
type ScenarioReport struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestSummary is the JSON payload of the test command.
type TestSummary struct {
	Scenarios []ScenarioReport `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

func (s *TestSummary) add(r ScenarioReport) {
	s.Scenarios = append(s.Scenarios, r)
	s.Total++
	if r.Pass {
		s.Passed++
	} else {
		s.Failed++
	}
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run bookmark scenarios",
		Long: `Run YAML bookmark scenarios against a fresh in-memory store.

Each scenario runs with a fixed clock and sequential ids, so its trace is
deterministic. Step expectations and final assertions are checked, and
the trace is compared against golden/<scenario>.golden next to the
scenario file when that file exists.

Exits 0 when every scenario passes, 1 when any fails and 2 when the
directory or filter is unusable.

Examples:
  readmark test ./scenarios
  readmark test ./scenarios --filter "match-*"
  readmark test ./scenarios --update
  readmark test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden files from the current traces")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenarios whose file name matches this glob")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}

	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	summary := TestSummary{Scenarios: []ScenarioReport{}}

	if len(files) == 0 {
		if out.Format == "json" {
			return out.Success(summary)
		}
		fmt.Fprintln(out.Writer, "No scenarios found.")
		return nil
	}

	for _, file := range files {
		r := runScenario(file, opts.Update)
		summary.add(r)
		if out.Format != "json" {
			printScenario(out, r, opts.Update)
		}
	}

	return reportSummary(out, summary)
}

// findScenarioFiles walks dir for .yaml and .yml files, in lexical order.
func findScenarioFiles(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern %q: %w", filter, err)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext)); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// runScenario loads, runs and golden-checks one scenario file.
func runScenario(file string, update bool) ScenarioReport {
	report := ScenarioReport{Name: filepath.Base(file)}
	failed := func(msg string) ScenarioReport {
		report.Errors = append(report.Errors, msg)
		return report
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return failed(fmt.Sprintf("failed to load scenario: %v", err))
	}
	report.Name = scenario.Name

	result, err := harness.Run(scenario)
	if err != nil {
		return failed(fmt.Sprintf("execution failed: %v", err))
	}

	snapshot, err := harness.Snapshot(scenario.Name, result)
	if err != nil {
		return failed(fmt.Sprintf("failed to render trace: %v", err))
	}

	golden := goldenFilePath(file)
	if update {
		if err := writeGolden(golden, snapshot); err != nil {
			return failed(err.Error())
		}
		report.Pass = true
		return report
	}

	want, err := os.ReadFile(golden)
	switch {
	case err == nil:
		if !bytes.Equal(want, snapshot) {
			report.Errors = append(report.Errors, "trace does not match golden file (run with --update to regenerate)")
		}
	case !os.IsNotExist(err):
		report.Errors = append(report.Errors, fmt.Sprintf("failed to read golden file: %v", err))
	}

	report.Errors = append(report.Errors, result.Errors...)
	report.Pass = len(report.Errors) == 0
	return report
}

// goldenFilePath maps dir/name.yaml to dir/golden/name.golden.
func goldenFilePath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write golden file: %w", err)
	}
	return nil
}

func printScenario(out *OutputFormatter, r ScenarioReport, update bool) {
	switch {
	case !r.Pass:
		fmt.Fprintf(out.Writer, "✗ %s\n", r.Name)
		for _, e := range r.Errors {
			fmt.Fprintf(out.Writer, "  %s\n", e)
		}
	case update:
		fmt.Fprintf(out.Writer, "✓ %s (golden updated)\n", r.Name)
	default:
		fmt.Fprintf(out.Writer, "✓ %s\n", r.Name)
	}
}

// reportSummary prints the totals and turns any failure into exit code 1.
func reportSummary(out *OutputFormatter, s TestSummary) error {
	if s.Failed > 0 {
		msg := fmt.Sprintf("%d of %d scenario(s) failed", s.Failed, s.Total)
		if out.Format == "json" {
			if err := out.encode(CLIResponse{
				Status: "error",
				Data:   s,
				Error:  &CLIError{Code: CodeTestFailed, Message: msg},
			}); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(out.Writer, "\n%d passed, %d failed, %d total\n", s.Passed, s.Failed, s.Total)
		}
		return NewExitError(ExitFailure, msg)
	}

	if out.Format == "json" {
		return out.Success(s)
	}
	fmt.Fprintf(out.Writer, "\n%d passed, %d failed, %d total\n", s.Passed, s.Failed, s.Total)
	fmt.Fprintln(out.Writer, "✓ All scenarios passed")
	return nil
}
