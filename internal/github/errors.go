package github

import "errors"

// Sentinel errors for aggregation and search.
var (
	// ErrNotFound indicates the root repository is missing or inaccessible.
	// This is the only upstream condition surfaced to snapshot callers;
	// every other failure degrades to category defaults.
	ErrNotFound = errors.New("repository not found")

	// ErrBadProjectID indicates a project id not of the form "owner/name".
	ErrBadProjectID = errors.New("invalid project id")
)
