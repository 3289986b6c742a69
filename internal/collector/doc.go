// Package collector implements the receiving side of the HTTP transport.
//
// This package is internal to pulseagent and backs the `pulseagent collect`
// command. It accepts the documents POSTed by [httpsender.Sender], keeps
// them in a [store.Store], and exposes them again:
//
//   - GET /api/status: latest check-in of every reporting instance
//   - GET /api/sse: Server-Sent Events stream of every received document
//
// It is meant for development and small fleets, not as a durable backend.
package collector
