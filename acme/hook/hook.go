// Package hook implements the challenge-provisioning hook subprocess
// protocol: a fixed argument vector, inherited stdio, and an exit-code
// contract distinguishing acceptance, decline, and spawn failure.
package hook

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// method is one of the three lifecycle calls made to a hook program.
type method string

const (
	methodBegin  method = "begin"
	methodDone   method = "done"
	methodFailed method = "failed"
)

// Attempt is a scoped acquisition of a challenge attempt: Begin spawns the
// hook with the "begin" method and, on acceptance, the caller must call
// Release(ok) exactly once to report "done" or "failed", regardless of
// which exit path the attempt takes (success, decline, poll failure,
// protocol error).
type Attempt struct {
	path       string
	typ        string
	identifier string
	token      string
	keyAuth    string
	accepted   bool
	released   bool
}

// run invokes the hook with the fixed argument vector for m, with
// inherited stdio, and classifies its result: 0 on success, the child's
// exit code on a clean non-zero exit, or a spawn error if the hook never
// started.
func run(ctx context.Context, path string, m method, typ, identifier, token, keyAuth string) (int, error) {
	cmd := exec.CommandContext(ctx, path, string(m), typ, identifier, token, keyAuth)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}

	return -1, fmt.Errorf("spawning hook %q: %w", path, err)
}

// Begin starts a scoped challenge attempt: it invokes the hook with the
// "begin" method and the fixed argument vector
// [path, "begin", typ, identifier, token, keyAuth]. Exit 0 is an
// acceptance (Attempt.Accepted reports true); exit >0 is a decline; a
// failure to spawn the hook at all is returned as an error rather than
// folded into Accepted, since it is fatal regardless of which challenge
// is being attempted.
func Begin(ctx context.Context, path, typ, identifier, token, keyAuth string) (*Attempt, error) {
	if path == "" {
		return nil, fmt.Errorf("no hook program configured")
	}

	code, err := run(ctx, path, methodBegin, typ, identifier, token, keyAuth)
	if err != nil {
		return nil, err
	}

	return &Attempt{
		path:       path,
		typ:        typ,
		identifier: identifier,
		token:      token,
		keyAuth:    keyAuth,
		accepted:   code == 0,
	}, nil
}

// Accepted reports whether the hook accepted (exit 0) the begin call.
func (a *Attempt) Accepted() bool {
	return a.accepted
}

// Release reports the outcome of the attempt to the hook with "done" (ok)
// or "failed" (!ok). It is a no-op if called more than once or if the
// attempt was never accepted. The hook's exit code from this call is
// advisory and ignored, matching the protocol's done/failed contract.
func (a *Attempt) Release(ok bool) {
	if a.released || !a.accepted {
		return
	}
	a.released = true

	m := methodFailed
	if ok {
		m = methodDone
	}
	// Best effort: a failure here must never mask the underlying attempt
	// result, so its error is discarded.
	_, _ = run(context.Background(), a.path, m, a.typ, a.identifier, a.token, a.keyAuth)
}
