// Package services contains the business logic layer between the HTTP
// handlers and the domain packages. Services own orchestration: they
// validate inputs, call the metrics backend, maintain the caches, and
// push progress over the WebSocket hub. Handlers stay thin.
package services
