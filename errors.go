package gotlex

import "fmt"

// LookupError is the base error type for lookup failures.
type LookupError struct {
	Message string
	Term    string
	Cause   error
}

func (e *LookupError) Error() string {
	msg := e.Message
	if e.Term != "" {
		msg = fmt.Sprintf("%s %q", e.Message, e.Term)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *LookupError) Unwrap() error {
	return e.Cause
}

// SourceError indicates a lookup source failure (HTTP error, parse error, API error).
type SourceError struct {
	Source   string
	Message  string
	Cause    error
	NotFound bool // The source answered but has no entry for the term
}

func (e *SourceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("source error (%s): %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("source error (%s): %s", e.Source, e.Message)
}

func (e *SourceError) Unwrap() error {
	return e.Cause
}

// StorageError indicates the backing medium of a cache store could not be
// read, written or locked. It is never used to report a cache miss.
type StorageError struct {
	Op      string // get, put, delete, cleanup, clear, stats, lock
	Path    string // Backing location (file path, redis address)
	Message string
	Cause   error
}

func (e *StorageError) Error() string {
	where := e.Op
	if e.Path != "" {
		where = e.Op + " " + e.Path
	}
	if e.Cause != nil {
		return fmt.Sprintf("storage error (%s): %s: %v", where, e.Message, e.Cause)
	}
	return fmt.Sprintf("storage error (%s): %s", where, e.Message)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// ConfigurationError indicates a namespace was used without a configured TTL,
// or was configured with an invalid one.
type ConfigurationError struct {
	Namespace string
	Message   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: namespace %q: %s", e.Namespace, e.Message)
}

// ValueError indicates a value handed to Put is not a valid JSON document.
type ValueError struct {
	Namespace string
	Key       string
	Cause     error
}

func (e *ValueError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid value for %s/%s: %v", e.Namespace, e.Key, e.Cause)
	}
	return fmt.Sprintf("invalid value for %s/%s: not a JSON document", e.Namespace, e.Key)
}

func (e *ValueError) Unwrap() error {
	return e.Cause
}
