// Package store keeps the documents received by the collector.
//
// This package is internal to pulseagent. It stores the latest check-in of
// every reporting instance (keyed by host and app id), counts documents by
// message type, and fans every received document out to subscribers such as
// the collector's Server-Sent Events stream.
//
// Subscribers receive records via channels with non-blocking sends (slow
// subscribers miss records rather than block the collector).
package store
