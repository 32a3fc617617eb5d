package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-groupcontent/internal/server"
	"github.com/goliatone/go-groupcontent/internal/watch"
	"github.com/goliatone/go-groupcontent/pkg/entity"
	"github.com/goliatone/go-groupcontent/pkg/orchestrator"
	rendertemplate "github.com/goliatone/go-groupcontent/pkg/render/template"
)

type serveOptions struct {
	addr  string
	watch bool
}

func newServeCmd(global *globalOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the preview server",
		Long: `serve starts an HTTP server for previewing fragments.

  POST /render   JSON or YAML entity body, returns HTML
  GET  /healthz  liveness probe`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, orch, err := global.setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			addr := cfg.Server.Addr
			if cmd.Flags().Changed("addr") {
				addr = opts.addr
			}
			watchTemplates := cfg.Server.Watch || opts.watch

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			group, ctx := errgroup.WithContext(ctx)
			if watchTemplates {
				w, err := newWatcher(cfg.TemplatesDir, orch, logger)
				if err != nil {
					return err
				}
				if w != nil {
					group.Go(func() error { return w.Run(ctx) })
				}
			}

			srv := server.New(orch,
				server.WithAddr(addr),
				server.WithLogger(logger.Named("server")),
				server.WithDefaultTheme(cfg.Theme.Name, cfg.Theme.Variant),
			)
			group.Go(func() error { return srv.Run(ctx) })
			return group.Wait()
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Reload templates when files in templates_dir change")
	return cmd
}

type templateSource interface {
	Templates() rendertemplate.TemplateRenderer
}

// newWatcher returns nil when there is nothing to watch.
func newWatcher(dir string, orch *orchestrator.Orchestrator, logger *zap.Logger) (*watch.Watcher, error) {
	if dir == "" {
		logger.Warn("--watch ignored: templates_dir is not configured")
		return nil, nil
	}
	renderer, err := orch.Registry().Get(entity.Hook)
	if err != nil {
		return nil, err
	}
	source, ok := renderer.(templateSource)
	if !ok {
		logger.Warn("--watch ignored: renderer does not expose templates")
		return nil, nil
	}
	resetter, ok := source.Templates().(watch.Resetter)
	if !ok {
		logger.Warn("--watch ignored: template renderer has no cache to reset")
		return nil, nil
	}
	return watch.New(dir, resetter, watch.WithLogger(logger.Named("watch")))
}
