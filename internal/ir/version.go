package ir

// Version constants recorded with every explanation run.
const (
	// FormatVersion is the proof artifact format version.
	FormatVersion = "1"

	// EngineVersion is the provex engine version.
	EngineVersion = "0.1.0"
)
