package models

import "errors"

// Error taxonomy for the analysis pipeline. Handlers map ErrValidation,
// ErrInvalidArchive and ErrPolicyRequired to client errors; everything else is
// a server error.
var (
	// ErrValidation marks bad input shape, size or type, reported before any
	// extraction work begins.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidArchive marks bytes that are not a readable archive.
	ErrInvalidArchive = errors.New("invalid archive")

	// ErrUnreadableDocument marks a file whose content cannot be parsed.
	// Caught per file during a batch; sibling files continue.
	ErrUnreadableDocument = errors.New("unreadable document")

	// ErrPolicyRequired is returned when a custom policy is requested but no
	// policy document was supplied.
	ErrPolicyRequired = errors.New("policy document required")

	// ErrClassificationFailed marks a language model response that could not
	// be parsed into a verdict after retry.
	ErrClassificationFailed = errors.New("classification failed")

	// ErrEmbeddingUnavailable marks an unreachable embedding model. Fatal at
	// startup, never handled per invoice.
	ErrEmbeddingUnavailable = errors.New("embedding model unavailable")
)
