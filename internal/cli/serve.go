package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/promptctl/internal/config"
	"github.com/opencode-ai/promptctl/internal/logging"
	"github.com/opencode-ai/promptctl/internal/prompt"
	"github.com/opencode-ai/promptctl/internal/server"
)

var (
	serveAddr        string
	serveNoRateLimit bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, "+server.DefaultAddr+")")
	serveCmd.Flags().BoolVar(&serveNoRateLimit, "no-rate-limit", false, "disable per-route rate limiting")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the template API over HTTP",
	Long: `Serve listing, validation and rendering over a JSON HTTP API.

  GET  /healthz
  GET  /v1/templates?q=&tag=
  GET  /v1/templates/{name}
  POST /v1/templates/{name}/validate
  POST /v1/templates/{name}/render
  GET  /v1/templates/{name}/quality
  POST /v1/validate
  GET  /v1/limits`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		logger := logging.Component("server")

		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}
		if addr == "" {
			addr = server.DefaultAddr
		}

		opts := []server.ServerOption{
			server.WithVersion(version),
			server.WithLogger(logger),
			server.WithDefaultFormat(cfg.Render.Format),
			server.WithRenderOptions(prompt.WithListDelimiter(cfg.Render.ListDelimiter)),
			server.WithRateLimiter(server.NewRateLimiter(
				server.WithEnabled(!serveNoRateLimit),
				server.WithLimits(routeLimits(cfg.Server.RateLimits)),
			)),
		}

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.History.Enabled {
			recorder, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer recorder.Close()
			opts = append(opts, server.WithRecorder(recorder))
		}

		srv := server.NewServer(newRegistry(), opts...)
		logger.Info().Str("addr", addr).Msg("serving template API")
		cmd.PrintErrf("Listening on http://%s\n", addr)
		return srv.Run(ctx, addr)
	},
}

func routeLimits(configured map[string]config.RateLimit) map[string]server.Limit {
	limits := make(map[string]server.Limit, len(configured))
	for route, limit := range configured {
		limits[route] = server.Limit{Rate: limit.Rate, Burst: limit.Burst}
	}
	return limits
}
