// Package server wires the ITSpace REST API behind a single HTTP server.
//
// The server builds a consistent middleware chain of request IDs, logging,
// audit, metrics, rate limiting, CORS, security headers, and auth so handlers
// all share common protections and instrumentation.
package server
