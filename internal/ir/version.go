package ir

// Version constants for the IR schema and the collator.
const (
	// IRVersion is the catalog schema version.
	IRVersion = "1"

	// CollatorVersion is the atomgen collator version.
	CollatorVersion = "0.1.0"
)
