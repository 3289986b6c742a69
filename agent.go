package pulseagent

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/jpalmerr/pulseagent/internal/schedule"
)

const (
	defaultCheckInInterval = 60 * time.Second

	// a non-positive interval disables the periodic thread dump
	defaultThreadDumpInterval = -1
)

// Agent assembles status documents and delivers them to every registered
// [Sender].
//
// An Agent is created with [New], optionally started with [Agent.Start] to
// run the periodic check-in (and thread dump, if enabled), and stopped with
// [Agent.Stop] or [Agent.Close]. The on-demand report methods can be called
// from any goroutine at any time, whether or not the agent is started.
//
// Typical lifecycle:
//
//	sender, err := httpsender.New("https://collector.internal")
//	...
//	agent, err := pulseagent.New(
//	    pulseagent.WithSender(sender),
//	    pulseagent.WithAppMetadataProvider(md),
//	)
//	if err != nil {
//	    slog.Error("failed to create agent", "error", err)
//	    os.Exit(1)
//	}
//	if err := agent.Start(ctx); err != nil {
//	    ...
//	}
//	defer agent.Close()
//
// Reports never return delivery errors: a failing sender is logged and the
// remaining senders still receive the document.
type Agent struct {
	decorators cowList[Decorator]
	dispatcher *dispatcher

	metadata           AppMetadataProvider
	checkInInterval    time.Duration
	threadDumpInterval time.Duration
	scrubPattern       string
	scrubRE            *regexp.Regexp
	dumper             ThreadDumper
	startTime          time.Time
	logger             *slog.Logger

	mu        sync.Mutex
	started   bool
	scheduler *schedule.Scheduler
}

// New creates an [Agent] with the given options.
//
// The host identity and discovery decorators are always registered first.
// Defaults:
//   - Check-in interval: 60 seconds
//   - Thread dump: disabled
//   - Failure threshold: 10
//
// Returns an error if any option is invalid.
func New(opts ...Option) (*Agent, error) {
	cfg := &agentConfig{
		checkInInterval:    defaultCheckInInterval,
		threadDumpInterval: defaultThreadDumpInterval,
		failureThreshold:   defaultFailureThreshold,
		dumper:             GoroutineDump,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	scrubRE, err := compileScrubPattern(cfg.scrubPattern)
	if err != nil {
		return nil, err
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &Agent{
		metadata:           cfg.metadata,
		checkInInterval:    cfg.checkInInterval,
		threadDumpInterval: cfg.threadDumpInterval,
		scrubPattern:       cfg.scrubPattern,
		scrubRE:            scrubRE,
		dumper:             cfg.dumper,
		startTime:          time.Now(),
		logger:             logger,
		dispatcher: &dispatcher{
			threshold: int64(cfg.failureThreshold),
			logger:    logger,
		},
	}

	a.decorators.add(NewHostDecorator(), &discoveryDecorator{agent: a})
	a.decorators.add(cfg.decorators...)
	a.dispatcher.senders.add(cfg.senders...)

	return a, nil
}

// AddDecorator appends d to the decorator chain. Safe to call while reports
// are running; reports already in progress do not see it.
func (a *Agent) AddDecorator(d Decorator) {
	if d == nil {
		return
	}
	a.decorators.add(d)
}

// AddSender registers s. Safe to call while reports are running.
func (a *Agent) AddSender(s Sender) {
	if s == nil {
		return
	}
	a.dispatcher.senders.add(s)
}

// Decorators returns the registered decorators in chain order.
func (a *Agent) Decorators() []Decorator {
	return append([]Decorator(nil), a.decorators.snapshot()...)
}

// Senders returns the registered senders in delivery order.
func (a *Agent) Senders() []Sender {
	return append([]Sender(nil), a.dispatcher.senders.snapshot()...)
}

// StartTime is the time the agent was created, reported as startTime.
func (a *Agent) StartTime() time.Time {
	return a.startTime
}

// AppMetadataProvider returns the attached metadata provider, or nil.
func (a *Agent) AppMetadataProvider() AppMetadataProvider {
	return a.metadata
}

// ThreadDumpEnabled reports whether the periodic thread dump is scheduled
// by [Agent.Start].
func (a *Agent) ThreadDumpEnabled() bool {
	return a.threadDumpInterval > 0
}

// FailureCount returns the number of consecutive delivery failures since the
// last successful delivery to any sender.
func (a *Agent) FailureCount() int64 {
	return a.dispatcher.failureCount()
}

// ReportCheckIn builds a decorated status document and delivers it as a
// check-in.
func (a *Agent) ReportCheckIn(ctx context.Context) {
	doc := a.newDecoratedDocument()
	a.dispatcher.dispatch(ctx, MessageCheckIn, doc)
}

// ReportAppEvent delivers ev as an app event. Events are not decorated.
func (a *Agent) ReportAppEvent(ctx context.Context, ev AppEvent) {
	a.ReportAppEventDocument(ctx, ev.Document())
}

// ReportAppEventDocument delivers a caller-built event document. The
// document is copied first; fields with non-conforming names or structured
// values are dropped from the copy.
func (a *Agent) ReportAppEventDocument(ctx context.Context, doc *Document) {
	if doc == nil {
		a.logger.Debug("ignoring nil app event")
		return
	}
	out := doc.Clone()
	ScrubNonConforming(out)
	a.dispatcher.dispatch(ctx, MessageAppEvent, out)
}

// ReportThreadDump captures a dump of every goroutine and delivers it,
// gzip-compressed and base64-encoded, under threadDumpGzip.
//
// Returns an error marked [ErrDataUnavailable] if the dump could not be
// captured or encoded. Delivery failures are not returned.
func (a *Agent) ReportThreadDump(ctx context.Context) error {
	doc := a.newDecoratedDocument()

	dump, err := encodeThreadDump(a.dumper)
	if err != nil {
		return dataUnavailable(err, "thread dump")
	}
	doc.Set("threadDumpGzip", dump)

	a.dispatcher.dispatch(ctx, MessageThreadDump, doc)
	return nil
}

// ReportAppConfigDump scrubs entries in place and delivers them under
// appConfigs.
//
// Keys matching [DefaultScrubPattern], the agent's scrub pattern or
// extraPattern have their values replaced with [RedactedValue].
//
// Returns an error marked [ErrDataUnavailable] (and [ErrInvalidScrubPattern])
// if extraPattern does not compile; nothing is delivered in that case.
func (a *Agent) ReportAppConfigDump(ctx context.Context, entries []AppConfigEntry, extraPattern string) error {
	doc := a.newDecoratedDocument()

	re := a.scrubRE
	if extraPattern != "" {
		var err error
		re, err = compileScrubPattern(a.scrubPattern, extraPattern)
		if err != nil {
			return dataUnavailable(err, "app config dump")
		}
	}
	scrubWith(re, entries)

	// attached after validation: the list is intentional payload
	doc.Set("appConfigs", entries)

	a.dispatcher.dispatch(ctx, MessageAppConfigDump, doc)
	return nil
}

func (a *Agent) newDecoratedDocument() *Document {
	doc := NewDocument()
	decorate(doc, a.decorators.snapshot(), a.logger)
	return doc
}

// Start schedules the periodic check-in (immediately, then at the check-in
// interval) and, when enabled, the periodic thread dump (first after one
// interval). It returns immediately.
//
// Cancelling ctx has the same effect as [Agent.Stop]. A report already in
// progress is never interrupted.
//
// Returns [ErrAlreadyStarted] if Start has been called before, even if the
// agent has since been stopped.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return ErrAlreadyStarted
	}
	a.started = true

	a.logger.Info("agent starting",
		"sender_count", len(a.dispatcher.senders.snapshot()),
		"decorator_count", len(a.decorators.snapshot()),
		"check_in_interval", a.checkInInterval.String(),
		"thread_dump_enabled", a.ThreadDumpEnabled(),
	)

	a.scheduler = schedule.New([]schedule.Task{
		{
			Name:     "check-in",
			Interval: a.checkInInterval,
			Run:      a.ReportCheckIn,
		},
		{
			Name:         "thread-dump",
			Interval:     a.threadDumpInterval,
			InitialDelay: a.threadDumpInterval,
			Run: func(ctx context.Context) {
				if err := a.ReportThreadDump(ctx); err != nil {
					a.logger.Warn("problem reporting thread dump", "error", err.Error())
				}
			},
		},
	}, a.logger)
	a.scheduler.Start(ctx)

	return nil
}

// Stop cancels all future scheduled reports. It does not wait for a report
// in progress. Stop is idempotent and safe to call before Start.
func (a *Agent) Stop() {
	a.mu.Lock()
	s := a.scheduler
	a.mu.Unlock()

	if s != nil {
		s.Stop()
	}
}

// Close stops the agent, waits for any scheduled report in progress, then
// closes every sender that implements [io.Closer]. All close errors are
// returned together.
func (a *Agent) Close() error {
	a.mu.Lock()
	s := a.scheduler
	a.mu.Unlock()

	if s != nil {
		s.Stop()
		s.Wait()
	}

	var result *multierror.Error
	for _, sender := range a.dispatcher.senders.snapshot() {
		c, ok := sender.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
