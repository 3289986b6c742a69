// Package sender groups the transports that implement [pulseagent.Sender].
//
//   - httpsender POSTs documents as JSON to a collector
//   - topic wraps documents in a message envelope and publishes them to
//     Kafka or Redis pub/sub
//   - memory records documents in process, for tests and embedding
package sender
