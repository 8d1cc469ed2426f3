package domain

import "fmt"

// ErrorKind classifies every failure a request can hit. The kinds stay
// distinct all the way to the boundary because identical wording for a bad
// request and an auth failure would mislead the user into retrying a command
// that cannot succeed without logging in first.
type ErrorKind int

const (
	// KindParse: the interpreter could not extract anything usable.
	KindParse ErrorKind = iota
	// KindFetchTransport: the snapshot request never reached the service.
	KindFetchTransport
	// KindFetchHTTP: the snapshot request came back non-2xx.
	KindFetchHTTP
	// KindFetchParse: the snapshot body was not the expected shape.
	KindFetchParse
	// KindAuthRequired: no token was supplied for an actuation intent.
	KindAuthRequired
	// KindValidation: malformed action parameters, rejected locally.
	KindValidation
	// KindRemoteAuth: the actuation service answered 401 or 403.
	KindRemoteAuth
	// KindRemoteBadRequest: the actuation service answered 400.
	KindRemoteBadRequest
	// KindRemoteNotFound: the entity is unknown to the actuation service.
	KindRemoteNotFound
	// KindRemoteServer: 5xx or an unexpected response shape.
	KindRemoteServer
)

// Error is the tagged failure carried between the core components. Detail
// holds user-presentable context (a clarification request, or the remote
// error message); Err preserves the underlying cause for logs.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Detail != "":
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Detail
	}
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a tagged failure with user-presentable detail.
func NewError(kind ErrorKind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// WrapError tags an underlying failure with a kind.
func WrapError(kind ErrorKind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}
