// Package app provides application initialization and lifecycle management.
// It wires configuration, logging, observability, the WebSocket hub, the
// metrics backend client, and all services together at startup, then runs
// the HTTP server until interrupted.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Load configuration from environment and files
//	2. Initialize logging and observability
//	3. Create stores, the result cache, and the backend client
//	4. Initialize services with their dependencies
//	5. Set up HTTP handlers and middleware
//	6. Configure and start the HTTP server
//	7. Set up graceful shutdown handlers
//
// # Graceful Shutdown
//
// The package handles SIGINT and SIGTERM to ensure active requests are
// completed, WebSocket connections are closed cleanly, and telemetry is
// flushed. Initialization errors are returned to the caller; the package
// never calls os.Exit() directly.
package app
