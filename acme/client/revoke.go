package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dilieto/uacme/acme"
	"github.com/dilieto/uacme/acme/acmeerr"
)

// Revoke requests revocation of a certificate, identified by its base64url
// (no padding) encoded DER bytes, with the given RFC 5280 CRL reason code.
//
// See https://www.rfc-editor.org/rfc/rfc8555#section-7.6
func (c *Client) Revoke(certDERBase64URL string, reason int) error {
	if c.AccountID() == "" {
		return &acmeerr.ConfigError{Msg: "Revoke: no account loaded; call Retrieve first"}
	}

	revokeURL, ok := c.endpointURL(acme.RevokeCertEndpoint)
	if !ok {
		return &acmeerr.ProtocolError{Msg: fmt.Sprintf("server directory missing %q", acme.RevokeCertEndpoint)}
	}

	body, err := json.Marshal(struct {
		Certificate string `json:"certificate"`
		Reason      int    `json:"reason"`
	}{Certificate: certDERBase64URL, Reason: reason})
	if err != nil {
		return err
	}

	resp, err := c.postSigned(revokeURL, body, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &acmeerr.ProtocolError{Msg: fmt.Sprintf("revokeCert returned status %d, expected 200", resp.StatusCode)}
	}
	return nil
}
