package pulseagent

import "github.com/cockroachdb/errors"

var (
	// ErrAlreadyStarted is returned by [Agent.Start] when the agent has
	// already been started. Starting twice is a configuration error.
	ErrAlreadyStarted = errors.New("agent already started")

	// ErrDataUnavailable marks errors from on-demand reports whose document
	// could not be formed (dump capture, encoding or scrubbing failed).
	// Delivery failures never carry this mark; they are not returned at all.
	ErrDataUnavailable = errors.New("report data unavailable")

	// ErrInvalidScrubPattern marks an extra scrub pattern that does not compile.
	ErrInvalidScrubPattern = errors.New("invalid scrub pattern")
)

// dataUnavailable wraps err with msg and marks it as [ErrDataUnavailable].
func dataUnavailable(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrDataUnavailable)
}
