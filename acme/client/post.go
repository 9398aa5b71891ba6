package client

import (
	"encoding/json"
	"fmt"

	"github.com/dilieto/uacme/acme"
	"github.com/dilieto/uacme/acme/acmeerr"
	"github.com/dilieto/uacme/acme/resources"
	acmenet "github.com/dilieto/uacme/net"
)

// postSigned signs data for url with opts and POSTs it, retrying exactly
// once if the server rejects the request with a badNonce problem. The
// retry reuses the nonce the error response itself carried (stored by
// storeNonce before the problem is parsed), matching the nonce manager's
// redesigned retry policy.
func (c *Client) postSigned(url string, data []byte, opts *SigningOptions) (*acmenet.NetResponse, error) {
	resp, prob, err := c.postSignedOnce(url, data, opts)
	if err != nil {
		return nil, err
	}
	if prob != nil && prob.Type == acme.BadNonceProblem {
		resp, prob, err = c.postSignedOnce(url, data, opts)
		if err != nil {
			return nil, err
		}
	}
	if prob != nil {
		return resp, &acmeerr.ProtocolError{Msg: "server rejected request", Problem: prob}
	}
	return resp, nil
}

// postSignedOnce performs a single sign-and-POST, returning the parsed
// problem document (if any) instead of an error so the caller can decide
// whether to retry.
func (c *Client) postSignedOnce(url string, data []byte, opts *SigningOptions) (*acmenet.NetResponse, *resources.Problem, error) {
	signResult, err := c.Sign(url, data, opts)
	if err != nil {
		return nil, nil, &acmeerr.KeyError{Msg: "signing request", Err: err}
	}

	resp, err := c.net.PostURL(url, signResult.SerializedJWS)
	if err != nil {
		return nil, nil, &acmeerr.TransportError{Msg: fmt.Sprintf("POST %s", url), Err: err}
	}
	c.LastResponse = resp
	c.storeNonce(resp)

	if resp.ContentType() == acme.ProblemContentType {
		var prob resources.Problem
		if err := json.Unmarshal(resp.Body, &prob); err != nil {
			return resp, nil, &acmeerr.ProtocolError{Msg: fmt.Sprintf("unparseable problem document: %s", err)}
		}
		return resp, &prob, nil
	}

	return resp, nil, nil
}
