package cli

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/gamesmith/internal/agent"
	"github.com/mrz1836/gamesmith/internal/api"
	"github.com/mrz1836/gamesmith/internal/config"
	"github.com/mrz1836/gamesmith/internal/domain"
	"github.com/mrz1836/gamesmith/internal/events"
	"github.com/mrz1836/gamesmith/internal/registry"
	"github.com/mrz1836/gamesmith/internal/signal"
	"github.com/mrz1836/gamesmith/internal/tui"
)

// readHeaderTimeout bounds slow clients before the handler runs.
const readHeaderTimeout = 5 * time.Second

// AddServeCommand adds the serve command to the root command.
func AddServeCommand(root *cobra.Command, flags *GlobalFlags) {
	root.AddCommand(newServeCmd(flags))
}

func newServeCmd(flags *GlobalFlags) *cobra.Command {
	overrides := &config.Config{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and event websocket",
		Long: `Start the agent server. It exposes agent control, project management,
template listing and generated game previews over HTTP, and streams task
events over a websocket at /ws.

The first Ctrl+C drains running agents and shuts down. A second one stops
waiting for the drain.

Examples:
  gamesmith serve
  gamesmith serve --addr :8080 --store-driver sqlite
  gamesmith serve --artifacts ./games --allowed-origin http://localhost:3000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags, overrides, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&overrides.Server.Addr, "addr", "", "listen address (default 127.0.0.1:8420)")
	cmd.Flags().StringSliceVar(&overrides.Server.AllowedOrigins, "allowed-origin", nil, "allowed CORS and websocket origin (repeatable)")
	cmd.Flags().StringVar(&overrides.Store.Driver, "store-driver", "", "project store driver (memory, file, sqlite)")
	cmd.Flags().StringVar(&overrides.Store.Path, "store-path", "", "project store directory or database file")
	cmd.Flags().StringVar(&overrides.Artifacts.Root, "artifacts", "", "artifact root directory")
	cmd.Flags().StringVar(&overrides.Generator.TemplatesDir, "templates-dir", "", "extra templates directory")
	return cmd
}

func runServe(ctx context.Context, flags *GlobalFlags, overrides *config.Config, w io.Writer) error {
	tui.CheckNoColor()
	out := tui.NewOutput(w, flags.Output)
	logger := *zerolog.Ctx(ctx)

	cfg, err := config.LoadWithOverrides(ctx, flags.ConfigPath, overrides)
	if err != nil {
		out.Error(err)
		return err
	}

	svc, err := newServices(ctx, cfg, logger)
	if err != nil {
		out.Error(err)
		return err
	}
	defer func() { _ = svc.Close() }()

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", cfg.Server.Addr)
	if err != nil {
		out.Error(err)
		return err
	}

	h := signal.NewHandler(ctx)
	defer h.Stop()

	out.Success("gamesmith listening on http://" + ln.Addr().String())
	return serve(h.Context(), svc, ln, h.Forced())
}

// serve runs the API server and websocket hub on ln until ctx is done, then
// shuts both down and stops every agent. A close of forced abandons the drain.
func serve(ctx context.Context, svc *services, ln net.Listener, forced <-chan struct{}) error {
	cfg := svc.cfg
	logger := svc.logger.With().Str("component", "server").Logger()

	reg := registry.New(func(p *domain.Project) *agent.Controller {
		return svc.newController(p, svc.bus)
	}, svc.logger)

	hub := events.NewHub(svc.bus, svc.logger, cfg.Server.AllowedOrigins)
	server := api.New(reg, svc.projects, svc.templates, svc.artifacts, svc.logger,
		api.WithHub(hub),
		api.WithAllowedOrigins(cfg.Server.AllowedOrigins),
	)
	hub.SetStateProvider(server.StateProvider)

	httpServer := &http.Server{
		Handler:           server.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		logger.Info().Str("addr", ln.Addr().String()).Msg("server listening")
		if err := httpServer.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		go func() {
			select {
			case <-forced:
				logger.Warn().Msg("forced shutdown")
				cancel()
			case <-shutdownCtx.Done():
			}
		}()

		err := httpServer.Shutdown(shutdownCtx)
		reg.Shutdown()
		logger.Info().Int("dropped_events", int(svc.bus.Dropped())).Msg("server stopped")
		return err
	})

	return g.Wait()
}
