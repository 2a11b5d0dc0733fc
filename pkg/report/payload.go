package report

import (
	"context"
	"fmt"
	"runtime"
)

const (
	// Unknown stands in for metadata that could not be obtained.
	Unknown = "UNKNOWN"

	defaultUserText = "User did not supply any additional text."
)

// Entry is the log history of one session.
type Entry struct {
	ID    string `json:"id"`
	Lines string `json:"lines"`
}

// Payload is the JSON body posted to the collector.
type Payload struct {
	Logs      []Entry `json:"logs"`
	Text      string  `json:"text"`
	Version   string  `json:"version"`
	UserAgent string  `json:"user_agent"`
}

// VersionProvider reports the host application version.
type VersionProvider interface {
	AppVersion(ctx context.Context) (string, error)
}

// StaticVersion is a VersionProvider returning a fixed version.
type StaticVersion string

// AppVersion returns the version, failing when it is empty
func (v StaticVersion) AppVersion(ctx context.Context) (string, error) {
	if v == "" {
		return "", fmt.Errorf("application version not configured")
	}
	return string(v), nil
}

// DefaultUserAgent describes the running process, e.g.
// "rageshake/1.2.0 (linux; amd64) go1.24.5".
func DefaultUserAgent(app, version string) string {
	if version == "" {
		version = Unknown
	}
	return fmt.Sprintf("%s/%s (%s; %s) %s", app, version, runtime.GOOS, runtime.GOARCH, runtime.Version())
}

// NewPayload builds a payload, substituting defaults for missing fields.
func NewPayload(logs []Entry, userText, version, userAgent string) Payload {
	if userText == "" {
		userText = defaultUserText
	}
	if version == "" {
		version = Unknown
	}
	if userAgent == "" {
		userAgent = Unknown
	}
	if logs == nil {
		logs = []Entry{}
	}
	return Payload{
		Logs:      logs,
		Text:      userText,
		Version:   version,
		UserAgent: userAgent,
	}
}

// LogBytes returns the total size of all entries' lines
func (p Payload) LogBytes() int {
	n := 0
	for _, e := range p.Logs {
		n += len(e.Lines)
	}
	return n
}
