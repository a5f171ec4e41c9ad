package app

import (
	"context"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"lmsgate/internal/server"
	"lmsgate/pkg/logging"
)

// runServe runs the gateway server alongside the background refresher and,
// in file mode, the session slot watcher.
//
// Signal Handling:
//   - SIGINT (Ctrl+C): Triggers graceful shutdown
//   - SIGTERM: Triggers graceful shutdown (common in container environments)
//
// If any member of the group fails, the others are stopped and the first
// error is returned.
func runServe(ctx context.Context, services *Services, srv *server.Server) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer services.Close()

	if srv.Addr() == "" {
		if err := srv.Start(); err != nil {
			logging.Error("Serve", err, "Failed to start gateway server")
			return err
		}
	}

	if services.Watcher != nil {
		if err := services.Watcher.Start(); err != nil {
			logging.Warn("Serve", "Session watcher not started: %v", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx)
	})
	g.Go(func() error {
		services.Refresher.Run(gctx)
		return nil
	})

	logging.Info("Serve", "Forwarding /api/ to %s. Press Ctrl+C to stop.", services.Forwarder.Origin())

	err := g.Wait()
	logging.Info("Serve", "Gateway stopped")
	return err
}
