package models

import "strings"

// BinarySlice is one architecture-specific code unit found inside a bundle member.
type BinarySlice struct {
	File    string `json:"file" yaml:"file"`
	Arch    string `json:"arch" yaml:"arch"`
	BuildID string `json:"build_id" yaml:"build_id"`
}

// Key identifies the slice by architecture and build identifier.
// Two slices with the same key produce the same symbol artifact.
func (s BinarySlice) Key() string {
	return strings.ToUpper(s.BuildID) + "_" + s.Arch
}
