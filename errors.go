package main

import "fmt"

// ConfigError means the lexicon or schema configuration is malformed.
// It is fatal at load time.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Reason)
}

// UnsupportedInputError means a piece of evidence text could not be
// analyzed. Non-fatal: the affected themes score zero with low confidence.
type UnsupportedInputError struct {
	Source string
	Reason string
}

func (e *UnsupportedInputError) Error() string {
	return fmt.Sprintf("unsupported input from %s: %s", e.Source, e.Reason)
}

// SchemaMismatchError means a feature vector does not match the schema a
// classifier model was trained against. Fatal for the current request.
type SchemaMismatchError struct {
	WantVersion string
	GotVersion  string
	WantWidth   int
	GotWidth    int
	Detail      string
}

func (e *SchemaMismatchError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("schema mismatch: %s", e.Detail)
	}
	return fmt.Sprintf("schema mismatch: model wants %s (width %d), vector is %s (width %d)",
		e.WantVersion, e.WantWidth, e.GotVersion, e.GotWidth)
}

// TrainingDataError means the training corpus cannot produce a usable
// model, e.g. every example carries the same label.
type TrainingDataError struct {
	Reason string
}

func (e *TrainingDataError) Error() string {
	return fmt.Sprintf("training data error: %s", e.Reason)
}

// ExternalProviderError wraps a failure of the search, completion, or
// market-data backend. Callers fall back to flagged estimation instead of
// aborting the analysis.
type ExternalProviderError struct {
	Provider string
	Err      error
}

func (e *ExternalProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ExternalProviderError) Unwrap() error {
	return e.Err
}
