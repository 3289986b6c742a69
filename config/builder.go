package config

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/jpalmerr/pulseagent"
	"github.com/jpalmerr/pulseagent/sender/httpsender"
	"github.com/jpalmerr/pulseagent/sender/topic"
)

// BuildOptions converts parsed configuration into agent options.
//
// The returned options include one [pulseagent.WithSender] per configured
// sender, in file order, and the logger. Senders that hold connections are
// closed by [pulseagent.Agent.Close].
func BuildOptions(cfg *Config, logger *slog.Logger) ([]pulseagent.Option, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := []pulseagent.Option{
		pulseagent.WithLogger(logger),
		pulseagent.WithCheckInInterval(cfg.CheckInInterval.Duration()),
		pulseagent.WithThreadDumpInterval(cfg.ThreadDumpInterval.Duration()),
		pulseagent.WithFailureThreshold(cfg.FailureThreshold),
		pulseagent.WithScrubPattern(cfg.ScrubPattern),
	}

	if md := BuildMetadata(cfg.App); md != nil {
		opts = append(opts, pulseagent.WithAppMetadataProvider(md))
	}

	senders, err := BuildSenders(cfg, logger)
	if err != nil {
		return nil, err
	}
	for _, s := range senders {
		opts = append(opts, pulseagent.WithSender(s))
	}

	return opts, nil
}

// BuildMetadata converts the app section into a metadata provider, or nil if
// the section is empty.
func BuildMetadata(ac AppConfig) *pulseagent.StaticMetadata {
	if ac.isZero() {
		return nil
	}
	return &pulseagent.StaticMetadata{
		App:      ac.ID,
		Ver:      ac.Version,
		Revision: ac.ScmRevision,
		Branch:   ac.ScmBranch,
		Env:      ac.Environment,
		SubEnv:   ac.SubEnvironment,
		Built:    ac.BuildTime,
		Deployed: ac.DeployTime,
		Extended: ac.Extended,
	}
}

func (a AppConfig) isZero() bool {
	return a.ID == "" && a.Version == "" && a.ScmRevision == "" && a.ScmBranch == "" &&
		a.Environment == "" && a.SubEnvironment == "" &&
		a.BuildTime.IsZero() && a.DeployTime.IsZero() && len(a.Extended) == 0
}

// BuildSenders creates one sender per configured sender, in file order.
func BuildSenders(cfg *Config, logger *slog.Logger) ([]pulseagent.Sender, error) {
	senders := make([]pulseagent.Sender, 0, len(cfg.Senders))
	for i, sc := range cfg.Senders {
		s, err := buildSender(sc, logger)
		if err != nil {
			return nil, fmt.Errorf("senders[%d] (%s): %w", i, sc.Type, err)
		}
		senders = append(senders, s)
	}
	return senders, nil
}

func buildSender(sc SenderConfig, logger *slog.Logger) (pulseagent.Sender, error) {
	switch sc.Type {
	case SenderHTTP:
		var opts []httpsender.Option
		if sc.Timeout != 0 {
			opts = append(opts, httpsender.WithTimeout(sc.Timeout.Duration()))
		}
		if sc.Username != "" {
			opts = append(opts, httpsender.WithBasicAuth(sc.Username, sc.Password))
		}
		for _, k := range sortedKeys(sc.Headers) {
			opts = append(opts, httpsender.WithHeader(k, sc.Headers[k]))
		}
		if sc.HTTP2 {
			opts = append(opts, httpsender.WithHTTP2())
		}
		return httpsender.New(sc.URL, opts...)

	case SenderKafka:
		p, err := topic.NewKafkaPublisher(sc.Brokers)
		if err != nil {
			return nil, err
		}
		return topic.New(p, sc.Topic, topicOptions(sc, logger)...), nil

	case SenderRedis:
		p, err := topic.NewRedisPublisher(sc.URL)
		if err != nil {
			return nil, err
		}
		return topic.New(p, sc.Topic, topicOptions(sc, logger)...), nil

	default:
		// validation should catch this
		return nil, fmt.Errorf("unknown sender type %q", sc.Type)
	}
}

func topicOptions(sc SenderConfig, logger *slog.Logger) []topic.Option {
	opts := []topic.Option{topic.WithLogger(logger)}
	for _, k := range sortedKeys(sc.Topics) {
		opts = append(opts, topic.WithTopicFor(messageTypes[k], sc.Topics[k]))
	}
	return opts
}

// sortedKeys returns the keys of m in sorted order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
