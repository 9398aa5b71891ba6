package client

import (
	"fmt"

	"github.com/dilieto/uacme/acme"
	"github.com/dilieto/uacme/acme/acmeerr"
	acmenet "github.com/dilieto/uacme/net"
)

// Nonce satisfies go-jose's NonceSource interface. The stored nonce is
// consumed by the call: once handed to a signing operation it is cleared, so
// a nonce can never be presented to the server twice. The next signed
// request either picks up the replacement stored from the previous
// response's Replay-Nonce header or triggers a refill from newNonce.
func (c *Client) Nonce() (string, error) {
	if c.nonce == "" {
		if err := c.RefreshNonce(); err != nil {
			return "", err
		}
	}
	n := c.nonce
	c.nonce = ""
	return n, nil
}

// RefreshNonce fetches a new nonce from the ACME server's newNonce endpoint
// and stores it for the next signing operation.
//
// See https://www.rfc-editor.org/rfc/rfc8555#section-7.2
func (c *Client) RefreshNonce() error {
	nonceURL, ok := c.endpointURL(acme.NewNonceEndpoint)
	if !ok {
		return &acmeerr.ProtocolError{Msg: fmt.Sprintf("missing %q entry in server directory", acme.NewNonceEndpoint)}
	}

	resp, err := c.net.GetURL(nonceURL)
	if err != nil {
		return &acmeerr.TransportError{Msg: "fetching new nonce", Err: err}
	}
	c.LastResponse = resp

	if resp.StatusCode != 204 {
		return &acmeerr.ProtocolError{Msg: fmt.Sprintf("%s returned status %d, expected 204", acme.NewNonceEndpoint, resp.StatusCode)}
	}

	c.storeNonce(resp)
	if c.nonce == "" {
		return &acmeerr.ProtocolError{Msg: fmt.Sprintf("%s returned no %s header", acme.NewNonceEndpoint, acme.ReplayNonceHeader)}
	}
	return nil
}

// storeNonce updates the client's stored nonce from any response carrying a
// Replay-Nonce header. Every POST/GET response refills the nonce this way,
// not just the dedicated newNonce endpoint.
func (c *Client) storeNonce(resp *acmenet.NetResponse) {
	if n := resp.Header.Get(acme.ReplayNonceHeader); n != "" {
		c.nonce = n
	}
}

func (c *Client) endpointURL(name string) (string, bool) {
	dir, err := c.Directory()
	if err != nil {
		return "", false
	}
	switch name {
	case acme.NewNonceEndpoint:
		return dir.NewNonce, dir.NewNonce != ""
	case acme.NewAccountEndpoint:
		return dir.NewAccount, dir.NewAccount != ""
	case acme.NewOrderEndpoint:
		return dir.NewOrder, dir.NewOrder != ""
	case acme.RevokeCertEndpoint:
		return dir.RevokeCert, dir.RevokeCert != ""
	}
	return "", false
}
