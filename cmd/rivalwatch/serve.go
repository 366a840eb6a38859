package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/rivalwatch/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve recommendations, insights and rule diagnostics over HTTP,
with Prometheus metrics on /metrics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			if err := a.cfg.RequireLLMKey(); err != nil {
				slog.Warn("No LLM API key configured, recommendation endpoints will fail", "error", err)
			}

			return server.New(a.pipeline, a.registry, a.logger).Run(ctx, a.cfg.Server.Addr)
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}
