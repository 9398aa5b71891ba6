// Package resources provides types for representing and interacting with
// ACME protocol resources.
package resources

import "crypto"

// Account holds the in-memory representation of a single ACME Account
// resource for the lifetime of one invocation. Unlike a long-lived shell
// session, uacme never persists the Account resource itself to disk: only
// its key is durable (see acme/keys). The ID (the server's "kid" URL) and
// Contact list are always re-derived from the server at the start of every
// action, via New for the new action and via Retrieve for the others.
//
// For information about the Account resource see
// https://www.rfc-editor.org/rfc/rfc8555#section-7.1.2
type Account struct {
	// The server-assigned account URL, used as the JWS Key ID once known.
	ID string `json:"-"`
	// The account's contact URIs as last observed from the server
	// (expected to be "mailto:" URIs).
	Contact []string `json:"contact,omitempty"`
	// Status is the server-reported account status ("valid", "deactivated", ...).
	Status string `json:"status,omitempty"`
	// Signer is the account keypair used to authenticate every request.
	Signer crypto.Signer `json:"-"`
}

// String returns the Account's ID (its kid URL), or an empty string if the
// account has not yet been looked up with the server.
func (a Account) String() string {
	return a.ID
}
