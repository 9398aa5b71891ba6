package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dilieto/uacme/acme/acmeerr"
	"github.com/dilieto/uacme/acme/hook"
	"github.com/dilieto/uacme/acme/keys"
	"github.com/dilieto/uacme/acme/resources"
)

// satisfyAuthorization drives one authorization URL through the challenge
// protocol: fetch it, and if pending, try each of its challenges in
// server-declared order until one succeeds.
func (c *Client) satisfyAuthorization(ctx context.Context, authzURL, hookPath string) error {
	authz := &resources.Authorization{ID: authzURL}
	if err := c.fetchAuthorization(authz); err != nil {
		return err
	}

	switch authz.Status {
	case "valid":
		return nil
	case "pending":
	default:
		return &acmeerr.ProtocolError{Msg: fmt.Sprintf("authorization %q has unexpected status %q", authzURL, authz.Status)}
	}

	for _, ch := range authz.Challenges {
		if ch.Status != "pending" {
			continue
		}

		ok, err := c.attemptChallenge(ctx, authz.Identifier.Value, &ch, hookPath)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}

	return &acmeerr.ChallengeDeclined{Type: "authorization", Identifier: authz.Identifier.Value}
}

func (c *Client) fetchAuthorization(authz *resources.Authorization) error {
	resp, err := c.postSigned(authz.ID, []byte{}, nil)
	if err != nil {
		return err
	}
	id := authz.ID
	if err := json.Unmarshal(resp.Body, authz); err != nil {
		return &acmeerr.ProtocolError{Msg: fmt.Sprintf("authorization body invalid: %s", err)}
	}
	authz.ID = id
	return nil
}

// attemptChallenge computes the key authorization for ch and offers the
// attempt to the hook, or, with no hook configured, to the client's
// interactive Prompt. On acceptance it triggers server validation and polls
// to a terminal status, reporting whether the challenge completed
// successfully.
func (c *Client) attemptChallenge(ctx context.Context, identifier string, ch *resources.Challenge, hookPath string) (bool, error) {
	keyAuth := keys.KeyAuth(c.Account.Signer, ch.Token)
	if ch.Type == "dns-01" {
		keyAuth = keys.DNSKeyAuth(c.Account.Signer, ch.Token)
	}

	if hookPath == "" {
		msg := fmt.Sprintf("challenge=%s ident=%s token=%s key_auth=%s\ntype 'y' to accept challenge, anything else to skip",
			ch.Type, identifier, ch.Token, keyAuth)
		if c.Prompt == nil || !c.Prompt(msg) {
			return false, nil
		}
		return c.runChallenge(ctx, ch)
	}

	attempt, err := hook.Begin(ctx, hookPath, ch.Type, identifier, ch.Token, keyAuth)
	if err != nil {
		return false, &acmeerr.ConfigError{Msg: fmt.Sprintf("hook failed to start: %s", err)}
	}
	if !attempt.Accepted() {
		return false, nil
	}

	ok, err := c.runChallenge(ctx, ch)
	attempt.Release(ok)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// runChallenge triggers server-side validation of ch and polls until it
// reaches a terminal status.
func (c *Client) runChallenge(ctx context.Context, ch *resources.Challenge) (bool, error) {
	resp, err := c.postSigned(ch.URL, []byte("{}"), nil)
	if err != nil {
		return false, err
	}
	if resp.StatusCode != http.StatusOK {
		return false, &acmeerr.ProtocolError{Msg: fmt.Sprintf("challenge trigger returned status %d, expected 200", resp.StatusCode)}
	}

	for {
		if err := c.fetchChallenge(ch); err != nil {
			return false, err
		}
		switch ch.Status {
		case "valid":
			return true, nil
		case "invalid":
			return false, nil
		case "pending", "processing":
			if err := sleepCtx(ctx, pollInterval); err != nil {
				return false, err
			}
		default:
			return false, &acmeerr.ProtocolError{Msg: fmt.Sprintf("challenge entered unexpected status %q", ch.Status)}
		}
	}
}

func (c *Client) fetchChallenge(ch *resources.Challenge) error {
	resp, err := c.postSigned(ch.URL, []byte{}, nil)
	if err != nil {
		return err
	}
	url := ch.URL
	if err := json.Unmarshal(resp.Body, ch); err != nil {
		return &acmeerr.ProtocolError{Msg: fmt.Sprintf("challenge body invalid: %s", err)}
	}
	ch.URL = url
	return nil
}
