// Package http contains the chi HTTP handlers for the dashboard API.
// Handlers decode and validate requests, delegate to the services layer,
// and render either a success envelope or an RFC 7807 problem response.
package http
