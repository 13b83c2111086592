package models

// SymbolArtifact is the staged output of dumping one BinarySlice.
type SymbolArtifact struct {
	Arch     string `json:"arch" yaml:"arch"`
	BuildID  string `json:"build_id" yaml:"build_id"`
	Source   string `json:"source" yaml:"source"`
	Path     string `json:"path" yaml:"path"`
	Size     int64  `json:"size" yaml:"size"`
	Readable bool   `json:"readable" yaml:"readable"`
	// Err holds the dump failure for this slice, if any. It is never
	// propagated; the artifact is simply excluded from upload.
	Err error `json:"-" yaml:"-"`
}

// Valid reports whether the artifact may be transmitted.
func (a SymbolArtifact) Valid() bool {
	return a.Readable && a.Size > 0
}

// DumpSummary counts per-slice dump results for one orchestration.
type DumpSummary struct {
	Attempted int `json:"attempted" yaml:"attempted"`
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Empty     int `json:"empty" yaml:"empty"`
	Failed    int `json:"failed" yaml:"failed"`
}

// AllFailed reports whether slices were attempted but none produced symbols.
func (s DumpSummary) AllFailed() bool {
	return s.Attempted > 0 && s.Succeeded == 0
}

// Partial reports whether some, but not all, slices produced symbols.
func (s DumpSummary) Partial() bool {
	return s.Succeeded > 0 && s.Succeeded < s.Attempted
}
