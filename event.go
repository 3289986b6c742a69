package pulseagent

import "sort"

// AppEventType classifies an application lifecycle event.
type AppEventType string

const (
	EventGenericMessage    AppEventType = "GENERIC_MESSAGE"
	EventGenericError      AppEventType = "GENERIC_ERROR"
	EventStartupInitiated  AppEventType = "STARTUP_INITIATED"
	EventStartupComplete   AppEventType = "STARTUP_COMPLETE"
	EventStartupFailed     AppEventType = "STARTUP_FAILED"
	EventShutdownInitiated AppEventType = "SHUTDOWN_INITIATED"
	EventShutdownComplete  AppEventType = "SHUTDOWN_COMPLETE"
	EventShutdownFailed    AppEventType = "SHUTDOWN_FAILED"
	EventDeployInitiated   AppEventType = "DEPLOY_INITIATED"
	EventDeployComplete    AppEventType = "DEPLOY_COMPLETE"
	EventDeployFailed      AppEventType = "DEPLOY_FAILED"
)

// AppEvent is a caller-built event record. It is delivered as-is: app events
// are not decorated.
type AppEvent struct {
	Type    AppEventType
	AppID   string
	Message string
	Host    string

	// Attributes are extra string fields added at the top level. Names that
	// are not conforming are dropped before delivery.
	Attributes map[string]string
}

// Document renders the event. Fixed fields come first, attributes follow in
// sorted key order. Empty fixed fields are omitted.
func (e AppEvent) Document() *Document {
	doc := NewDocument()
	if e.Type != "" {
		doc.Set("eventType", string(e.Type))
	}
	if e.AppID != "" {
		doc.Set("appId", e.AppID)
	}
	if e.Message != "" {
		doc.Set("message", e.Message)
	}
	if e.Host != "" {
		doc.Set("host", e.Host)
	}

	keys := make([]string, 0, len(e.Attributes))
	for k := range e.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		doc.Set(k, e.Attributes[k])
	}
	return doc
}
