package pulseagent

import "time"

// AppMetadataProvider supplies build, version and environment facts about
// the host application to the discovery decorator.
//
// Every accessor is called independently. Returning an empty value (or the
// zero time) means the field is unavailable and it is reported as null;
// returning an error (or panicking) means the field is omitted entirely.
// Neither outcome affects the other fields.
type AppMetadataProvider interface {
	AppID() (string, error)
	Version() (string, error)
	ScmRevision() (string, error)
	ScmBranch() (string, error)
	Environment() (string, error)
	SubEnvironment() (string, error)
	BuildTime() (time.Time, error)
	DeployTime() (time.Time, error)

	// ExtendedData returns extra fields merged directly into the top level
	// of the document. Structured values are stripped by the validator.
	ExtendedData() (map[string]any, error)
}

// StaticMetadata is an [AppMetadataProvider] backed by fixed values.
// The config package builds one from the `app` section of a config file.
type StaticMetadata struct {
	App      string
	Ver      string
	Revision string
	Branch   string
	Env      string
	SubEnv   string
	Built    time.Time
	Deployed time.Time
	Extended map[string]any
}

var _ AppMetadataProvider = (*StaticMetadata)(nil)

func (m *StaticMetadata) AppID() (string, error)          { return m.App, nil }
func (m *StaticMetadata) Version() (string, error)        { return m.Ver, nil }
func (m *StaticMetadata) ScmRevision() (string, error)    { return m.Revision, nil }
func (m *StaticMetadata) ScmBranch() (string, error)      { return m.Branch, nil }
func (m *StaticMetadata) Environment() (string, error)    { return m.Env, nil }
func (m *StaticMetadata) SubEnvironment() (string, error) { return m.SubEnv, nil }
func (m *StaticMetadata) BuildTime() (time.Time, error)   { return m.Built, nil }
func (m *StaticMetadata) DeployTime() (time.Time, error)  { return m.Deployed, nil }

// ExtendedData returns a copy of Extended.
func (m *StaticMetadata) ExtendedData() (map[string]any, error) {
	if m.Extended == nil {
		return nil, nil
	}
	cp := make(map[string]any, len(m.Extended))
	for k, v := range m.Extended {
		cp[k] = v
	}
	return cp, nil
}
