// Package client provides a low-level ACME v2 protocol driver: directory
// bootstrap, nonce management, JWS signing, and the account/order/
// authorization/challenge state machines built on top of them.
package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/dilieto/uacme/acme"
	"github.com/dilieto/uacme/acme/acmeerr"
	"github.com/dilieto/uacme/acme/resources"
	acmenet "github.com/dilieto/uacme/net"
)

// Client drives one ACME account's interaction with a single server for the
// lifetime of one process invocation. Unlike a long-lived interactive
// session juggling several accounts, a Client holds exactly one Account and
// re-derives its server state (kid, contact list, status) at the start of
// every action rather than persisting it across runs.
type Client struct {
	// DirectoryURL is the ACME server's directory endpoint.
	DirectoryURL *url.URL
	// Account is the account used to authenticate every signed request.
	// Its Signer must be set before any signing operation; its ID (kid) is
	// populated once the account has been created or retrieved.
	Account *resources.Account
	// LastResponse captures the most recently received HTTP response, so
	// callers can inspect status/headers/body after an operation without
	// every method returning its own response wrapper.
	LastResponse *acmenet.NetResponse
	// Prompt, when set, is consulted at the two points the protocol needs
	// an operator decision with no flag or hook to make it: accepting the
	// CA's terms of service during account creation without -y, and
	// accepting a challenge attempt when no hook program is configured.
	// A nil Prompt declines both.
	Prompt func(msg string) bool

	net       *acmenet.ACMENet
	directory *resources.Directory
	nonce     string
}

// Config configures a new Client.
type Config struct {
	// DirectoryURL is the ACME server's directory URL. Required.
	DirectoryURL string
	// CABundlePath optionally overrides the system trust roots used for
	// HTTPS requests to the server.
	CABundlePath string
}

func (conf *Config) normalize() error {
	conf.DirectoryURL = strings.TrimSpace(conf.DirectoryURL)
	if conf.DirectoryURL == "" {
		return &acmeerr.ConfigError{Msg: "DirectoryURL must not be empty"}
	}
	if _, err := url.Parse(conf.DirectoryURL); err != nil {
		return &acmeerr.ConfigError{Msg: fmt.Sprintf("DirectoryURL invalid: %s", err)}
	}
	return nil
}

// New constructs a Client and performs the directory bootstrap (fetch
// directory, prime the first nonce) described for the directory-fetch
// component. The returned Client has no Account set; callers populate it
// via New, Retrieve, or by assigning Account directly with a loaded Signer.
func New(conf Config) (*Client, error) {
	if err := conf.normalize(); err != nil {
		return nil, err
	}

	net, err := acmenet.New(acmenet.Config{CABundlePath: conf.CABundlePath})
	if err != nil {
		return nil, &acmeerr.ConfigError{Msg: err.Error()}
	}

	dirURL, _ := url.Parse(conf.DirectoryURL)

	c := &Client{
		DirectoryURL: dirURL,
		net:          net,
	}

	if err := c.Bootstrap(); err != nil {
		return nil, err
	}

	return c, nil
}

// Bootstrap fetches the server's directory and primes the nonce stream. It
// is called automatically by New but is exported so tests and callers that
// construct a Client by hand can re-run it.
func (c *Client) Bootstrap() error {
	resp, err := c.net.GetURL(c.DirectoryURL.String())
	if err != nil {
		return &acmeerr.TransportError{Msg: "fetching directory", Err: err}
	}
	c.LastResponse = resp

	if resp.StatusCode != 200 {
		return &acmeerr.ProtocolError{Msg: fmt.Sprintf("directory fetch returned status %d", resp.StatusCode)}
	}
	if !resp.JSON() {
		return &acmeerr.ProtocolError{Msg: "directory response was not JSON"}
	}
	if resp.ContentType() == acme.ProblemContentType {
		return &acmeerr.ProtocolError{Msg: "directory fetch returned a problem document"}
	}

	var dir resources.Directory
	if err := json.Unmarshal(resp.Body, &dir); err != nil {
		return &acmeerr.ProtocolError{Msg: fmt.Sprintf("directory body invalid: %s", err)}
	}
	c.directory = &dir

	return c.RefreshNonce()
}

// Directory returns the cached directory resource.
func (c *Client) Directory() (*resources.Directory, error) {
	if c.directory == nil {
		if err := c.Bootstrap(); err != nil {
			return nil, err
		}
	}
	return c.directory, nil
}

// AccountID returns the active account's kid URL, or "" if the Account is
// nil or has not yet been created/retrieved with the server.
func (c *Client) AccountID() string {
	if c.Account == nil {
		return ""
	}
	return c.Account.ID
}
