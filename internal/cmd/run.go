package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/conclave/internal/errors"
	"github.com/Iron-Ham/conclave/internal/lifecycle"
)

var runCmd = &cobra.Command{
	Use:   "run [input]",
	Short: "Run the pipeline on one input document",
	Long: `Run ideation, execution and judgment on an input document.

The input is taken from the argument, from --file, or from stdin when neither
is given (or the argument is "-"). Every document is written under the
configured content store and the summary callout is printed on completion.

Examples:
  conclave run "Reduce onboarding time for new engineers"
  conclave run --file notes/onboarding.md
  cat brief.md | conclave run --target brief --timeout 10m`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

var (
	runTarget  string
	runFile    string
	runTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runTarget, "target", "t", "", "Target document ID guarded against concurrent runs (default: file name or \"stdin\")")
	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "Read the input from a file")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Abort model calls after this duration (0 for none)")
}

func runRun(cmd *cobra.Command, args []string) error {
	input, err := readInput(args, runFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx := cmd.Context()
	if runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runTimeout)
		defer cancel()
	}

	res, err := a.controller.Run(ctx, targetFor(runTarget, runFile), input)
	if res != nil {
		printResult(cmd.OutOrStdout(), res, a.cfg.StorageRoot())
	}
	return err
}

// readInput resolves the input document from the argument, a file, or stdin.
func readInput(args []string, file string, stdin io.Reader) (string, error) {
	var raw string
	switch {
	case len(args) == 1 && args[0] != "-":
		raw = args[0]
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		raw = string(data)
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		raw = string(data)
	}

	if strings.TrimSpace(raw) == "" {
		return "", errors.NewValidationError("input must not be empty").WithField("input")
	}
	return raw, nil
}

// targetFor picks the registry key for a run.
func targetFor(target, file string) string {
	if target != "" {
		return target
	}
	if file != "" {
		if abs, err := filepath.Abs(file); err == nil {
			return abs
		}
		return file
	}
	return "stdin"
}

// printResult writes the callout followed by the stored document paths.
func printResult(w io.Writer, res *lifecycle.Result, root string) {
	if res.Artifacts.Callout != "" {
		_, _ = fmt.Fprintln(w, res.Artifacts.Callout)
		_, _ = fmt.Fprintln(w)
	}
	if res.FailedStage != "" {
		_, _ = fmt.Fprintf(w, "Stopped after %s: no usable output.\n", res.FailedStage)
	}
	if len(res.Produced) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "Documents (%s):\n", root)
	for _, p := range res.Produced {
		_, _ = fmt.Fprintf(w, "  %s\n", p)
	}
}
