// Package server runs an http.Server until its context is canceled and then
// shuts it down gracefully.
//
//	srv, err := server.NewFromConfig(cfg, server.WithLogger(log))
//	if err != nil {
//		return err
//	}
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(srv.Run(ctx, router))
//	return g.Wait()
//
// Timeouts default to conservative values (15s read/write, 60s idle, 30s
// shutdown). TLS is enabled by SERVER_TLS_CERT_FILE and SERVER_TLS_KEY_FILE.
package server
