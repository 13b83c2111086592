package models

import "strings"

// Credentials authenticate an upload. They are forwarded as request headers only.
type Credentials struct {
	AppID  string
	AppKey string
}

// Complete reports whether both the application id and key are present.
func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.AppID) != "" && strings.TrimSpace(c.AppKey) != ""
}

// UploadResult describes the outcome of one upload call.
type UploadResult struct {
	Outcome  UploadOutcome `json:"outcome" yaml:"outcome"`
	Endpoint string        `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Parts    []string      `json:"parts,omitempty" yaml:"parts,omitempty"`
	Status   int           `json:"status,omitempty" yaml:"status,omitempty"`
	Body     string        `json:"body,omitempty" yaml:"body,omitempty"`
	// Sent holds the artifacts as rechecked when the request was built, in
	// the same order as Parts.
	Sent []SymbolArtifact `json:"-" yaml:"-"`
}
