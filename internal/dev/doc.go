// Package dev wires the live-reload development server together.
//
// A Server serves a directory over HTTP, injects the reload client into every
// HTML page, watches the directories of its watch rules, runs the matching
// rule commands and broadcasts the outcome to connected browsers.
//
// # Routes
//
//	GET  /__livedev/ws       websocket transport
//	GET  /__reload_poll      long-poll transport
//	GET  /__livedev/status   connected clients, outstanding error, rules
//	POST /__livedev/notify   broadcast a message from an external tool
//	GET  /__livedev/metrics  Prometheus metrics (when enabled)
//	*    /*                  static files
//
// # Static Files
//
// Paths without an extension resolve to "<path>.html", then
// "<path>/index.html", then the root index.html. In push-state mode a missing
// .html file also falls back to the root index.html. Missing files are
// answered 404 with a plain-text body, except /favicon.ico which falls back to
// a built-in icon; other read errors are answered 400.
//
// # Usage
//
//	srv, err := dev.NewServer(dev.ServerOptions{Config: cfg})
//	if err != nil {
//	    return err
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	return srv.Start(ctx)
package dev
