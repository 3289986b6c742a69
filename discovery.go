package pulseagent

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// timeLayout is ISO-8601 with milliseconds and an explicit UTC offset.
const timeLayout = "2006-01-02T15:04:05.000+00:00"

// discoveryDecorator adds application metadata from the agent's
// [AppMetadataProvider] (if any) plus process, OS and runtime facts.
type discoveryDecorator struct {
	agent *Agent
}

// Decorate implements [Decorator].
func (d *discoveryDecorator) Decorate(doc *Document) error {
	if md := d.agent.metadata; md != nil {
		d.safeSet(doc, "appId", func() (any, error) { return stringField(md.AppID()) })
		d.safeSet(doc, "version", func() (any, error) { return stringField(md.Version()) })
		d.safeSet(doc, "scmRevision", func() (any, error) { return stringField(md.ScmRevision()) })
		d.safeSet(doc, "scmBranch", func() (any, error) { return stringField(md.ScmBranch()) })
		d.safeSet(doc, "buildTime", func() (any, error) { return timeField(md.BuildTime()) })
		d.safeSet(doc, "deployTime", func() (any, error) { return timeField(md.DeployTime()) })
		d.safeSet(doc, "environment", func() (any, error) { return stringField(md.Environment()) })
		d.safeSet(doc, "subEnvironment", func() (any, error) { return stringField(md.SubEnvironment()) })
		d.mergeExtended(doc, md)
	}

	doc.Set("startTime", FormatTime(d.agent.startTime))
	doc.Set("pid", os.Getpid())
	doc.Set("osName", runtime.GOOS)
	doc.Set("osVersion", osVersion())
	doc.Set("osArch", runtime.GOARCH)
	doc.Set("runtimeVersion", runtime.Version())
	doc.Set("runtimeHome", runtimeHome())
	return nil
}

// safeSet stores the value produced by f under attr. Errors and panics are
// logged and the attribute is left out.
func (d *discoveryDecorator) safeSet(doc *Document, attr string, f func() (any, error)) {
	defer func() {
		if r := recover(); r != nil {
			d.agent.logger.Warn("could not obtain value", "attribute", attr, "panic", fmt.Sprintf("%v", r))
		}
	}()

	val, err := f()
	if err != nil {
		d.agent.logger.Warn("could not obtain value", "attribute", attr, "error", err.Error())
		return
	}
	doc.Set(attr, val)
}

func (d *discoveryDecorator) mergeExtended(doc *Document, md AppMetadataProvider) {
	defer func() {
		if r := recover(); r != nil {
			d.agent.logger.Warn("could not obtain extended data", "panic", fmt.Sprintf("%v", r))
		}
	}()

	extended, err := md.ExtendedData()
	if err != nil {
		d.agent.logger.Warn("could not obtain extended data", "error", err.Error())
		return
	}
	for k, v := range extended {
		doc.Set(k, v)
	}
}

// stringField maps an empty string to nil.
func stringField(s string, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	return s, nil
}

// timeField maps the zero time to nil and formats everything else.
func timeField(t time.Time, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if t.IsZero() {
		return nil, nil
	}
	return FormatTime(t), nil
}

// FormatTime renders t in UTC as ISO-8601 with an explicit +00:00 offset,
// e.g. 2024-03-01T12:30:00.000+00:00.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// runtimeHome returns the directory holding the running executable.
func runtimeHome() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}
