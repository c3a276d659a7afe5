package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/conclave/internal/lifecycle"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run pipelines for requests read from stdin",
	Long: `Read newline-delimited JSON requests from stdin and run each one.

Each request is {"target": "...", "input": "..."}. Requests run concurrently;
a request for a target that is already running is rejected. One JSON result
line is written to stdout per request as it finishes. Edits to the config
file apply to requests that start after the change.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type serveRequest struct {
	Target string `json:"target"`
	Input  string `json:"input"`
}

type serveResult struct {
	Target      string   `json:"target"`
	RunID       string   `json:"run_id,omitempty"`
	Winner      string   `json:"winner,omitempty"`
	FailedStage string   `json:"failed_stage,omitempty"`
	Documents   []string `json:"documents,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// runFunc starts one run; Controller.Run satisfies it.
type runFunc func(ctx context.Context, targetID, input string) (*lifecycle.Result, error)

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	a.watchConfig()
	return serveRequests(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), a.controller.Run)
}

// serveRequests dispatches every request line to run and returns once all
// runs have finished.
func serveRequests(ctx context.Context, r io.Reader, w io.Writer, run runFunc) error {
	var (
		mu  sync.Mutex
		enc = json.NewEncoder(w)
		wg  conc.WaitGroup
	)
	emit := func(res serveResult) {
		mu.Lock()
		defer mu.Unlock()
		_ = enc.Encode(res)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var req serveRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			emit(serveResult{Error: fmt.Sprintf("invalid request: %v", err)})
			continue
		}
		wg.Go(func() {
			res, err := run(ctx, req.Target, req.Input)
			emit(toServeResult(req.Target, res, err))
		})
	}

	wg.Wait()
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading requests: %w", err)
	}
	return nil
}

func toServeResult(target string, res *lifecycle.Result, err error) serveResult {
	out := serveResult{Target: target}
	if res != nil {
		if res.Run != nil {
			out.RunID = res.Run.ID
			if res.Run.Judgment != nil {
				out.Winner = res.Run.Judgment.Winner
			}
		}
		out.FailedStage = res.FailedStage.String()
		out.Documents = res.Produced
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}
