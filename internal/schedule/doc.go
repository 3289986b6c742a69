// Package schedule runs the agent's periodic reports.
//
// This package is internal to pulseagent. It implements a small fixed-rate
// scheduler: every [Task] gets its own goroutine and ticker, an optional
// initial delay, and a panic recovery boundary around each run.
//
// The agent registers two tasks:
//
//   - check-in: runs immediately, then every check-in interval
//   - thread-dump: first run after one interval, then every interval
//
// Users of the pulseagent library should not need to interact with this
// package directly.
package schedule
