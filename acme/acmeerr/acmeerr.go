// Package acmeerr defines the typed error kinds returned by the ACME
// protocol driver, so callers can tell configuration mistakes, key
// problems, transport failures, protocol-level rejections, and declined
// challenges apart without parsing error strings.
package acmeerr

import (
	"fmt"

	"github.com/dilieto/uacme/acme/resources"
)

// ConfigError reports a problem with the invocation itself: a missing
// flag, an invalid confdir, an unparseable URL.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "config: " + e.Msg }

// KeyError reports a problem generating, loading, or using a private key.
type KeyError struct {
	Msg string
	Err error
}

func (e *KeyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("key: %s: %s", e.Msg, e.Err)
	}
	return "key: " + e.Msg
}

func (e *KeyError) Unwrap() error { return e.Err }

// TransportError reports a network or TLS level failure reaching the ACME
// server, as distinct from the server answering with an error.
type TransportError struct {
	Msg string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport: %s: %s", e.Msg, e.Err)
	}
	return "transport: " + e.Msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports that the ACME server rejected a request or
// returned a response that violates the protocol's expectations (wrong
// status code, malformed body, an RFC 7807 problem document). Problem, if
// non-nil, is the server's problem document.
type ProtocolError struct {
	Msg     string
	Problem *resources.Problem
}

func (e *ProtocolError) Error() string {
	if e.Problem != nil {
		return fmt.Sprintf("protocol: %s: %s", e.Msg, e.Problem.String())
	}
	return "protocol: " + e.Msg
}

// ChallengeDeclined reports that no challenge of an authorization
// succeeded: each was declined (by the hook's non-zero, non-spawn-failure
// exit status, or by the operator's prompt answer when no hook is
// configured) or failed validation.
type ChallengeDeclined struct {
	Type       string
	Identifier string
}

func (e *ChallengeDeclined) Error() string {
	return fmt.Sprintf("challenge %s for %s declined or failed", e.Type, e.Identifier)
}

// PrecheckSkip is returned when an action determines, before making any
// network call, that there is nothing to do: e.g. issue is asked to
// renew a certificate that is still valid and covers the requested names.
// Callers should treat this as success, not failure.
type PrecheckSkip struct {
	Msg string
}

func (e *PrecheckSkip) Error() string { return "skip: " + e.Msg }
