package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/rivalwatch/internal/cli"
	"github.com/Veraticus/rivalwatch/internal/model"
	"github.com/Veraticus/rivalwatch/internal/pipeline"
)

// maxBatchLine bounds one JSON line in a batch file.
const maxBatchLine = 1 << 20

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [text|-]",
		Short: "Recommend a response to a piece of competitor intelligence",
		Long: `Analyze free-text competitor intelligence and print a recommendation.

The text is taken from the arguments, or from stdin when no argument or
"-" is given. With --business the request is rate limited, access checked
and recorded in the decision log for later insights.`,
		Example: `  rivalwatch analyze "Acme just launched a cheaper plan with confusing messaging"
  cat notes.txt | rivalwatch analyze --business acme-corp -`,
		RunE: runAnalyze,
	}

	cmd.Flags().String("business", "", "business id to analyze for")
	cmd.Flags().String("user", "", "user id for access checks")
	cmd.Flags().Bool("snapshot", false, "analyze the stored snapshot of --business instead of text")
	cmd.Flags().Bool("no-memory", false, "do not record the decision")
	cmd.Flags().Bool("json", false, "print JSON instead of styled output")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	businessID, _ := cmd.Flags().GetString("business")
	userID, _ := cmd.Flags().GetString("user")
	snapshot, _ := cmd.Flags().GetBool("snapshot")
	noMemory, _ := cmd.Flags().GetBool("no-memory")
	asJSON, _ := cmd.Flags().GetBool("json")

	var text string
	if !snapshot {
		var err error
		text, err = readText(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{requireLLM: true})
	if err != nil {
		return err
	}
	defer closeApp(ctx, a)

	rec, err := func() (model.Recommendation, error) {
		if snapshot {
			return a.pipeline.HandleBusinessSnapshot(ctx, businessID, userID, noMemory)
		}
		return a.pipeline.HandleRequest(ctx, pipeline.Request{
			Text:          text,
			BusinessID:    businessID,
			UserID:        userID,
			DisableMemory: noMemory,
		})
	}()
	if err != nil {
		return explainFailure(cmd.OutOrStdout(), err, asJSON)
	}

	if asJSON {
		return writeJSON(cmd.OutOrStdout(), rec)
	}
	fmt.Fprint(cmd.OutOrStdout(), cli.RenderRecommendation(rec))
	return nil
}

// readText joins args, or reads r when args are empty or a lone "-".
func readText(r io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Analyze a file of requests, one JSON object per line",
		Long: `Process a JSON lines file where each line is a request:

  {"text": "...", "business_id": "acme-corp", "user_id": "alice", "disable_memory": false}

Each result is written as one JSON line to stdout. Failed lines are
reported in place and do not stop the batch.`,
		RunE: runBatch,
	}

	cmd.Flags().StringP("file", "f", "", "JSON lines file to process (- for stdin)")
	cmd.Flags().Bool("no-progress", false, "disable the progress bar")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// batchResult is one line of batch output.
type batchResult struct {
	Recommendation *model.Recommendation `json:"recommendation,omitempty"`
	Error          string                `json:"error,omitempty"`
	Line           int                   `json:"line"`
}

func runBatch(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("file")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	requests, err := loadBatch(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}
	if len(requests) == 0 {
		slog.Info("No requests to process", "file", path)
		return nil
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{requireLLM: true})
	if err != nil {
		return err
	}
	defer closeApp(ctx, a)

	var bar *progressbar.ProgressBar
	if !noProgress {
		bar = newProgressBar(cmd.ErrOrStderr(), len(requests))
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, lr := range requests {
		if ctx.Err() != nil {
			return fmt.Errorf("batch interrupted after %d requests: %w", lr.line-1, ctx.Err())
		}

		result := batchResult{Line: lr.line}
		if lr.err != nil {
			result.Error = lr.err.Error()
		} else if rec, err := a.pipeline.HandleRequest(ctx, lr.req); err != nil {
			result.Error = err.Error()
		} else {
			result.Recommendation = &rec
		}
		if result.Error != "" {
			failed++
		}

		if err := json.NewEncoder(out).Encode(result); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
		if bar != nil {
			if err := bar.Add(1); err != nil {
				slog.Warn("Failed to update progress bar", "error", err)
			}
		}
	}

	summary := fmt.Sprintf("Processed %d requests", len(requests))
	if failed > 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning(fmt.Sprintf("%s, %d failed", summary, failed)))
	} else {
		fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatSuccess(summary))
	}
	return nil
}

type lineRequest struct {
	err  error
	req  pipeline.Request
	line int
}

// loadBatch parses every non-blank line up front. Malformed lines keep their
// parse error and are reported in order with the rest.
func loadBatch(stdin io.Reader, path string) ([]lineRequest, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open batch file: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var requests []lineRequest
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxBatchLine)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		lr := lineRequest{line: line}
		if err := json.Unmarshal([]byte(raw), &lr.req); err != nil {
			lr.err = fmt.Errorf("invalid JSON: %w", err)
		}
		requests = append(requests, lr)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return requests, nil
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Analyzing intelligence...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

// closeApp drains the decision log and releases resources, even after the
// command context was canceled.
func closeApp(ctx context.Context, a *app) {
	if err := a.Close(context.WithoutCancel(ctx)); err != nil {
		slog.Warn("Failed to close cleanly", "error", err)
	}
}
