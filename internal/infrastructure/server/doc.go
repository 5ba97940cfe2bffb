// Package server assembles the devext HTTP service: configuration, logger,
// metrics registry, session supervisor, tool providers, middleware and
// routes.
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err != nil {
//		return err
//	}
//	return srv.Run(ctx)
package server
