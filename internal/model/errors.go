package model

import (
	"errors"
	"strings"
)

// Kind classifies a pipeline failure so that the caller can react without parsing messages
type Kind string

const (
	KindTransport Kind = "transport" // network, timeout, connection
	KindRemote    Kind = "remote"    // non-success status or error payload
	KindAuth      Kind = "auth"      // invalid or expired credentials
	KindNotFound  Kind = "not_found" // requested comic does not exist
	KindIO        Kind = "io"        // local filesystem
)

type kindSentinel Kind

func (k kindSentinel) Error() string { return string(k) + " error" }

// Sentinels for errors.Is - ErrAuth errors also match ErrRemote
var (
	ErrTransport error = kindSentinel(KindTransport)
	ErrRemote    error = kindSentinel(KindRemote)
	ErrAuth      error = kindSentinel(KindAuth)
	ErrNotFound  error = kindSentinel(KindNotFound)
	ErrIO        error = kindSentinel(KindIO)
)

// Error - single error type of the pipeline, discriminated by Kind
type Error struct {
	Kind Kind
	Op   string // remote method, request or file operation that failed
	Code int    // host error_code or HTTP status, 0 if unknown
	Msg  string // remote-provided message
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(" error")
	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	k, ok := target.(kindSentinel)
	if !ok {
		return false
	}
	if Kind(k) == e.Kind {
		return true
	}
	return Kind(k) == KindRemote && e.Kind == KindAuth
}

func NewTransportError(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

func NewRemoteError(op string, code int, msg string) *Error {
	return &Error{Kind: KindRemote, Op: op, Code: code, Msg: msg}
}

func NewAuthError(op string, code int, msg string) *Error {
	return &Error{Kind: KindAuth, Op: op, Code: code, Msg: msg}
}

func NewNotFoundError(op string, msg string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Msg: msg}
}

func NewIOError(op string, err error) *Error {
	return &Error{Kind: KindIO, Op: op, Err: err}
}

// KindOf extracts the Kind of the first *Error in err's chain, or "" if there is none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
