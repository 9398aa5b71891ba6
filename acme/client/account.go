package client

import (
	"crypto"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dilieto/uacme/acme"
	"github.com/dilieto/uacme/acme/acmeerr"
	"github.com/dilieto/uacme/acme/resources"
)

type newAccountRequest struct {
	Contact              []string `json:"contact,omitempty"`
	TermsOfServiceAgreed bool     `json:"termsOfServiceAgreed,omitempty"`
	OnlyReturnExisting   bool     `json:"onlyReturnExisting,omitempty"`
}

type accountResponse struct {
	Status  string   `json:"status"`
	Contact []string `json:"contact,omitempty"`
}

// New creates a brand new account keyed by signer, failing if the server
// reports that an account for this key already exists. This is the
// "new" action: it is intentionally not idempotent, preserving the
// original tool's behavior of refusing to silently reuse an existing
// account.
//
// If the server's directory meta advertises a terms-of-service URL and
// tosAgreed is false, the client's Prompt is asked to accept the terms
// before the account is created; with no Prompt set the terms are treated
// as declined.
//
// See https://www.rfc-editor.org/rfc/rfc8555#section-7.3
func (c *Client) New(signer crypto.Signer, contactEmail string, tosAgreed bool) (*resources.Account, error) {
	c.Account = &resources.Account{Signer: signer}

	newAccountURL, ok := c.endpointURL(acme.NewAccountEndpoint)
	if !ok {
		return nil, &acmeerr.ProtocolError{Msg: fmt.Sprintf("server directory missing %q", acme.NewAccountEndpoint)}
	}

	probeReq := newAccountRequest{OnlyReturnExisting: true}
	probeBody, err := json.Marshal(probeReq)
	if err != nil {
		return nil, err
	}

	resp, err := c.postSigned(newAccountURL, probeBody, &SigningOptions{EmbedKey: true, Signer: signer})
	if prob, ok := asProtocolProblem(err); ok && prob.Type == acme.AccountDoesNotExistProblem {
		// Expected: no existing account for this key, proceed to create one.
	} else if err != nil {
		return nil, err
	} else if resp != nil && resp.StatusCode == http.StatusOK {
		loc := resp.Header.Get(acme.LocationHeader)
		return nil, &acmeerr.ProtocolError{Msg: fmt.Sprintf("account already exists at %q", loc)}
	}

	dir, err := c.Directory()
	if err != nil {
		return nil, err
	}
	if terms := dir.Meta.TermsOfService; terms != "" && !tosAgreed {
		if c.Prompt == nil || !c.Prompt(fmt.Sprintf("type 'y' to accept the terms at %s", terms)) {
			return nil, &acmeerr.ConfigError{Msg: "terms not agreed to, aborted"}
		}
	}

	createReq := newAccountRequest{TermsOfServiceAgreed: true}
	if contactEmail != "" {
		createReq.Contact = []string{"mailto:" + contactEmail}
	}
	createBody, err := json.Marshal(createReq)
	if err != nil {
		return nil, err
	}

	resp, err = c.postSigned(newAccountURL, createBody, &SigningOptions{EmbedKey: true, Signer: signer})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, &acmeerr.ProtocolError{Msg: fmt.Sprintf("newAccount returned status %d, expected 201", resp.StatusCode)}
	}

	loc := resp.Header.Get(acme.LocationHeader)
	if loc == "" {
		return nil, &acmeerr.ProtocolError{Msg: "newAccount response had no Location header"}
	}

	var body accountResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, &acmeerr.ProtocolError{Msg: fmt.Sprintf("newAccount body invalid: %s", err)}
	}
	if body.Status != "valid" {
		return nil, &acmeerr.ProtocolError{Msg: fmt.Sprintf("newAccount returned status %q, expected valid", body.Status)}
	}

	c.Account.ID = loc
	c.Account.Status = body.Status
	c.Account.Contact = body.Contact
	return c.Account, nil
}

// Retrieve looks up the existing account for signer and adopts its kid,
// status, and contact list. It is used by update/deactivate/issue/revoke,
// all of which need the account URL but must not create a new account.
func (c *Client) Retrieve(signer crypto.Signer) (*resources.Account, error) {
	c.Account = &resources.Account{Signer: signer}

	newAccountURL, ok := c.endpointURL(acme.NewAccountEndpoint)
	if !ok {
		return nil, &acmeerr.ProtocolError{Msg: fmt.Sprintf("server directory missing %q", acme.NewAccountEndpoint)}
	}

	probeBody, err := json.Marshal(newAccountRequest{OnlyReturnExisting: true})
	if err != nil {
		return nil, err
	}

	resp, err := c.postSigned(newAccountURL, probeBody, &SigningOptions{EmbedKey: true, Signer: signer})
	if prob, ok := asProtocolProblem(err); ok && prob.Type == acme.AccountDoesNotExistProblem {
		return nil, &acmeerr.ConfigError{Msg: "no account exists for this key; run the \"new\" action first"}
	} else if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &acmeerr.ProtocolError{Msg: fmt.Sprintf("account retrieval returned status %d, expected 200", resp.StatusCode)}
	}

	loc := resp.Header.Get(acme.LocationHeader)
	if loc == "" {
		return nil, &acmeerr.ProtocolError{Msg: "account retrieval response had no Location header"}
	}

	var body accountResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, &acmeerr.ProtocolError{Msg: fmt.Sprintf("account body invalid: %s", err)}
	}
	if body.Status != "valid" {
		return nil, &acmeerr.ProtocolError{Msg: fmt.Sprintf("account status is %q, expected valid", body.Status)}
	}

	c.Account.ID = loc
	c.Account.Status = body.Status
	c.Account.Contact = body.Contact
	return c.Account, nil
}

// Update compares the account's server-side contact list against email and,
// if they diverge, POSTs the new contact list. If email is empty, the
// contact list is cleared. A no-op update (contact already matches) is not
// an error and performs no request.
func (c *Client) Update(email string) error {
	if c.AccountID() == "" {
		return &acmeerr.ConfigError{Msg: "Update: no account loaded; call Retrieve first"}
	}

	for _, entry := range c.Account.Contact {
		if !strings.HasPrefix(strings.ToLower(entry), "mailto:") {
			return &acmeerr.ProtocolError{Msg: fmt.Sprintf("account has malformed contact entry %q", entry)}
		}
	}

	// An empty (but non-nil) list serializes as [], which is how a contact
	// list is cleared server-side; null would leave it untouched.
	wantContact := []string{}
	if email != "" {
		wantContact = []string{"mailto:" + email}
	}

	if contactEqual(c.Account.Contact, wantContact) {
		return nil
	}

	req := struct {
		Contact []string `json:"contact"`
	}{Contact: wantContact}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	resp, err := c.postSigned(c.Account.ID, body, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &acmeerr.ProtocolError{Msg: fmt.Sprintf("account update returned status %d, expected 200", resp.StatusCode)}
	}

	c.Account.Contact = wantContact
	return nil
}

// Deactivate marks the account deactivated server-side.
func (c *Client) Deactivate() error {
	if c.AccountID() == "" {
		return &acmeerr.ConfigError{Msg: "Deactivate: no account loaded; call Retrieve first"}
	}

	body, err := json.Marshal(struct {
		Status string `json:"status"`
	}{Status: "deactivated"})
	if err != nil {
		return err
	}

	resp, err := c.postSigned(c.Account.ID, body, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &acmeerr.ProtocolError{Msg: fmt.Sprintf("account deactivation returned status %d, expected 200", resp.StatusCode)}
	}

	c.Account.Status = "deactivated"
	return nil
}

// contactEqual compares two contact lists element by element, ignoring
// case. It does not check the "mailto:" prefix; Update does that first.
func contactEqual(have, want []string) bool {
	if len(have) != len(want) {
		return false
	}
	for i := range have {
		if !strings.EqualFold(have[i], want[i]) {
			return false
		}
	}
	return true
}

func asProtocolProblem(err error) (*resources.Problem, bool) {
	protoErr, ok := err.(*acmeerr.ProtocolError)
	if !ok || protoErr.Problem == nil {
		return nil, false
	}
	return protoErr.Problem, true
}
