package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/rivalwatch/internal/cli"
	"github.com/Veraticus/rivalwatch/internal/common"
	"github.com/Veraticus/rivalwatch/internal/model"
)

func insightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insights <business>",
		Short: "Show a business's decision profile and reactive spiral check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			insights, err := a.pipeline.BusinessInsights(ctx, args[0])
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), insights)
			}
			fmt.Fprint(cmd.OutOrStdout(), cli.RenderInsights(args[0], insights))
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "print JSON instead of styled output")
	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <business> <competitor>",
		Short: "Show how a business has responded to one competitor",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			history, err := a.pipeline.CompetitorHistory(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), history)
			}
			fmt.Fprint(cmd.OutOrStdout(), cli.RenderHistory(args[1], history))
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "print JSON instead of styled output")
	return cmd
}

func diagnoseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Trace the rule table against an extracted context",
		Long: `Evaluate every strategy rule against a structured context and show
which rules match and which decision would be selected. No model is called.

The signals file holds an extracted context as JSON:

  {"user_intent": "seeking_response",
   "competitors": [{"name": "Acme", "signals": {"event": "price_change", "price_info": "lower", ...}}],
   "market_signals": []}`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("signals")
			asJSON, _ := cmd.Flags().GetBool("json")

			extracted, err := loadContext(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			diag := a.pipeline.RuleDiagnostics(extracted)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), diag)
			}
			fmt.Fprint(cmd.OutOrStdout(), cli.RenderDiagnostics(diag))
			return nil
		},
	}

	cmd.Flags().String("signals", "", "JSON file with an extracted context (- for stdin)")
	cmd.Flags().Bool("json", false, "print JSON instead of styled output")
	_ = cmd.MarkFlagRequired("signals")
	return cmd
}

func loadContext(stdin io.Reader, path string) (model.ExtractedContext, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return model.ExtractedContext{}, fmt.Errorf("failed to open signals file: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var extracted model.ExtractedContext
	if err := json.NewDecoder(r).Decode(&extracted); err != nil {
		return model.ExtractedContext{}, common.NewUserError("signals file is not a valid extracted context", err)
	}
	return extracted, nil
}
