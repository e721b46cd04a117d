package rag

import (
	"errors"
	"fmt"
)

// Sentinel errors for the answering pipeline. Use errors.Is to test for them;
// the structured types below match their sentinel through an Is method.
var (
	// ErrProviderUnavailable means a named provider is unknown or could not
	// be constructed (missing credentials, unreachable local model).
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrEmptyInput means an operation was given nothing to work on.
	ErrEmptyInput = errors.New("empty input")

	// ErrNoContent means none of the requested URLs produced any text.
	ErrNoContent = errors.New("no content could be extracted from the provided URLs")

	// ErrEmbeddingProviderMismatch means the requested embedding provider
	// differs from the one the knowledge base was built with.
	ErrEmbeddingProviderMismatch = errors.New("embedding provider mismatch")

	// ErrNoKnowledgeBase means a question was asked before any URLs were processed.
	ErrNoKnowledgeBase = errors.New("no knowledge base available, please process URLs first")

	// ErrCompletionProvider means the completion provider failed.
	ErrCompletionProvider = errors.New("completion provider failed")

	// ErrIO means durable storage could not be read or written.
	ErrIO = errors.New("persistence failed")

	// ErrNotFound means there is no persisted knowledge base.
	ErrNotFound = errors.New("knowledge base not found")
)

// ProviderUnavailableError reports which provider could not be resolved.
type ProviderUnavailableError struct {
	// Provider is the requested provider name.
	Provider string
	// Reason describes why the provider is unavailable.
	Reason string
	// Err is the underlying cause, if any.
	Err error
}

func (e *ProviderUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %q unavailable: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("provider %q unavailable: %s", e.Provider, e.Reason)
}

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }

func (e *ProviderUnavailableError) Is(target error) bool {
	return target == ErrProviderUnavailable
}

// EmbeddingMismatchError carries both sides of a provider mismatch.
type EmbeddingMismatchError struct {
	// Recorded is the provider the knowledge base was built with.
	Recorded string
	// Requested is the provider the caller asked for.
	Requested string
}

func (e *EmbeddingMismatchError) Error() string {
	return fmt.Sprintf("knowledge base was built with embedding provider %q but %q was requested; clear the knowledge base to switch providers",
		e.Recorded, e.Requested)
}

func (e *EmbeddingMismatchError) Is(target error) bool {
	return target == ErrEmbeddingProviderMismatch
}

// CompletionError wraps a failure returned by a completion provider.
type CompletionError struct {
	// Provider is the completion provider name.
	Provider string
	// Err is the provider error.
	Err error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion provider %q failed: %v", e.Provider, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

func (e *CompletionError) Is(target error) bool {
	return target == ErrCompletionProvider
}

// PersistenceError wraps a durable storage failure.
type PersistenceError struct {
	// Op is the storage operation that failed: save, load or delete.
	Op string
	// Key is the storage key involved.
	Key string
	// Err is the storage error.
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool {
	return target == ErrIO
}
