// Package searcherr implements the hybrid search core's structured
// error taxonomy: Config, Embedding, VectorStore, Index, IndexNotBuilt,
// Search, Io, Http, Json and ApiKeyMissing. Collaborator failures
// propagate at the Search boundary as an *Error; only IndexNotBuilt is
// recovered locally by the searcher into a successful empty response
// (see internal/searcher).
package searcherr

import (
	"errors"
	"fmt"
)

// Kind is the logical error category.
type Kind string

const (
	KindConfig        Kind = "config"
	KindEmbedding     Kind = "embedding"
	KindVectorStore   Kind = "vector_store"
	KindIndex         Kind = "index"
	KindIndexNotBuilt Kind = "index_not_built"
	KindSearch        Kind = "search"
	KindIo            Kind = "io"
	KindHttp          Kind = "http"
	KindJson          Kind = "json"
	KindApiKeyMissing Kind = "api_key_missing"
)

// Error is the structured error type carried across the search
// boundary. It wraps an optional underlying cause and supports
// errors.Is/errors.As via Unwrap and Is.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, so
// callers can do errors.Is(err, searcherr.New(searcherr.KindIndexNotBuilt, "", nil)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error directly.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Config builds a Config-kind error.
func Config(format string, args ...any) *Error {
	return New(KindConfig, fmt.Sprintf(format, args...), nil)
}

// Embedding wraps an upstream embedding-provider failure.
func Embedding(message string, cause error) *Error {
	return New(KindEmbedding, message, cause)
}

// VectorStore wraps an underlying ANN/storage-layer failure.
func VectorStore(message string, cause error) *Error {
	return New(KindVectorStore, message, cause)
}

// Index builds an Index-kind error (absent or corrupted index, other
// than the specific "not built" case — see IndexNotBuilt).
func Index(message string, cause error) *Error {
	return New(KindIndex, message, cause)
}

// IndexNotBuilt builds the sentinel the searcher recovers locally into
// a successful empty response with IndexMissing set.
func IndexNotBuilt() *Error {
	return New(KindIndexNotBuilt, "index not built", nil)
}

// Search builds a generic pipeline-failure error.
func Search(format string, args ...any) *Error {
	return New(KindSearch, fmt.Sprintf(format, args...), nil)
}

// Io wraps an infrastructure I/O fault.
func Io(cause error) *Error {
	return New(KindIo, "io error", cause)
}

// Http wraps an infrastructure HTTP fault.
func Http(cause error) *Error {
	return New(KindHttp, "http error", cause)
}

// Json wraps an infrastructure JSON (un)marshal fault.
func Json(cause error) *Error {
	return New(KindJson, "json error", cause)
}

// ApiKeyMissing builds the dedicated configuration-omission error.
func ApiKeyMissing(message string) *Error {
	return New(KindApiKeyMissing, message, nil)
}

// IsIndexNotBuilt reports whether err is (or wraps) an IndexNotBuilt error.
func IsIndexNotBuilt(err error) bool {
	return errors.Is(err, IndexNotBuilt())
}
