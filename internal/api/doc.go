// Package api serves the launch monitor over HTTP and WebSocket.
//
// REST endpoints live under /api/v1 and map one-to-one onto monitor
// operations (status, mode, handedness, last shot, readiness, link
// maintenance). The WebSocket endpoint streams every bus event to clients
// that subscribed to its kind, or to "*".
//
//	srv, err := api.New(api.Deps{...})
//	if err := srv.Start(ctx); err != nil { ... }
//	defer srv.Close()
//
// All methods are safe for concurrent use.
package api
