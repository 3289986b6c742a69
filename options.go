package pulseagent

import (
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
)

// agentConfig holds mutable state during Agent construction.
type agentConfig struct {
	checkInInterval    time.Duration
	threadDumpInterval time.Duration
	senders            []Sender
	decorators         []Decorator
	metadata           AppMetadataProvider
	scrubPattern       string
	failureThreshold   int
	dumper             ThreadDumper
	logger             *slog.Logger
}

// Option is a function that configures an [Agent] during construction.
//
// Options return an error if validation fails, in which case [New] returns
// that error and no agent.
type Option func(*agentConfig) error

// WithCheckInInterval sets the fixed rate of the periodic check-in.
//
// Defaults to 60 seconds. A zero or negative interval disables the periodic
// check-in; [Agent.ReportCheckIn] can still be called directly.
//
// Example:
//
//	agent, err := pulseagent.New(
//	    pulseagent.WithSender(s),
//	    pulseagent.WithCheckInInterval(30 * time.Second),
//	)
func WithCheckInInterval(d time.Duration) Option {
	return func(cfg *agentConfig) error {
		cfg.checkInInterval = d
		return nil
	}
}

// WithThreadDumpInterval enables the periodic thread dump at the given rate.
//
// The first dump is taken one interval after [Agent.Start], not immediately.
// Disabled by default; a zero or negative interval disables it.
func WithThreadDumpInterval(d time.Duration) Option {
	return func(cfg *agentConfig) error {
		cfg.threadDumpInterval = d
		return nil
	}
}

// WithSender registers a [Sender]. Can be called multiple times; documents
// are delivered to senders in registration order.
//
// Returns an error if s is nil.
func WithSender(s Sender) Option {
	return func(cfg *agentConfig) error {
		if s == nil {
			return errors.New("sender cannot be nil")
		}
		cfg.senders = append(cfg.senders, s)
		return nil
	}
}

// WithSenders registers several senders at once. Equivalent to calling
// [WithSender] for each.
func WithSenders(senders ...Sender) Option {
	return func(cfg *agentConfig) error {
		for i, s := range senders {
			if s == nil {
				return errors.Newf("sender %d cannot be nil", i)
			}
		}
		cfg.senders = append(cfg.senders, senders...)
		return nil
	}
}

// WithDecorator appends a [Decorator] after the built-in host identity and
// discovery decorators.
//
// Nil decorators are silently ignored.
//
// Example:
//
//	agent, err := pulseagent.New(
//	    pulseagent.WithDecorator(pulseagent.DecoratorFunc(func(doc *pulseagent.Document) error {
//	        doc.Set("region", os.Getenv("REGION"))
//	        return nil
//	    })),
//	)
func WithDecorator(d Decorator) Option {
	return func(cfg *agentConfig) error {
		if d == nil {
			return nil
		}
		cfg.decorators = append(cfg.decorators, d)
		return nil
	}
}

// WithAppMetadataProvider attaches the source of application metadata used
// by the discovery decorator. Without one, only host, process, OS and
// runtime fields are reported.
func WithAppMetadataProvider(p AppMetadataProvider) Option {
	return func(cfg *agentConfig) error {
		cfg.metadata = p
		return nil
	}
}

// WithScrubPattern sets an extra regular expression for configuration keys
// whose values must be redacted in app-config dumps. It is combined with
// [DefaultScrubPattern]; matching is case-insensitive and covers the whole
// key.
//
// Returns an error marked [ErrInvalidScrubPattern] if the pattern does not
// compile.
func WithScrubPattern(pattern string) Option {
	return func(cfg *agentConfig) error {
		if _, err := compileScrubPattern(pattern); err != nil {
			return err
		}
		cfg.scrubPattern = pattern
		return nil
	}
}

// WithFailureThreshold sets the number of consecutive delivery failures after
// which failures are logged at Warn instead of Debug. Defaults to 10.
//
// Returns an error if n is zero or negative.
func WithFailureThreshold(n int) Option {
	return func(cfg *agentConfig) error {
		if n <= 0 {
			return errors.New("failure threshold must be positive")
		}
		cfg.failureThreshold = n
		return nil
	}
}

// WithThreadDumper replaces [GoroutineDump] as the source of thread dumps.
//
// Returns an error if fn is nil.
func WithThreadDumper(fn ThreadDumper) Option {
	return func(cfg *agentConfig) error {
		if fn == nil {
			return errors.New("thread dumper cannot be nil")
		}
		cfg.dumper = fn
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the agent.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *agentConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}
