// Package errs defines the error taxonomy that every stage of a parse
// surfaces: which failures are per-file and recoverable, and which are
// fatal to the whole project parse.
package errs

import "fmt"

// FileUnreadable wraps an I/O or decoding failure for a single file. The
// file is skipped; the project parse continues.
type FileUnreadable struct {
	Path string
	Err  error
}

func (e *FileUnreadable) Error() string {
	return fmt.Sprintf("file unreadable: %s: %v", e.Path, e.Err)
}

func (e *FileUnreadable) Unwrap() error { return e.Err }

// ParserUnavailable reports that the grammar or tooling a parser kind
// needs is missing. One is reported for every file of that kind, not once
// per kind; each such file is skipped.
type ParserUnavailable struct {
	ParserKind string
	Err        error
}

func (e *ParserUnavailable) Error() string {
	return fmt.Sprintf("parser unavailable: %s: %v", e.ParserKind, e.Err)
}

func (e *ParserUnavailable) Unwrap() error { return e.Err }

// ParserError is a recoverable per-file failure that a parser returned as
// an error. Syntax errors are not ParserErrors: the parsers report those
// as a single error Element spanning the file. A file with a ParserError
// is left out of the Project and listed among the parse's problems; the
// project parse continues.
type ParserError struct {
	Path string
	Err  error
}

func (e *ParserError) Error() string {
	return fmt.Sprintf("parse error: %s: %v", e.Path, e.Err)
}

func (e *ParserError) Unwrap() error { return e.Err }

// UnresolvedImport reports an import whose alias could not be resolved.
// Logged and omitted from the alias map; never fatal.
type UnresolvedImport struct {
	ImporterPath string
	ModuleOrName string
}

func (e *UnresolvedImport) Error() string {
	return fmt.Sprintf("unresolved import in %s: %s", e.ImporterPath, e.ModuleOrName)
}

// InvariantViolation reports a broken data-model invariant (e.g.
// end_line < start_line). Fatal to the enclosing parse: a project commit
// must not occur once one is raised.
type InvariantViolation struct {
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.Detail)
}
