package client

import (
	"context"
	"crypto"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dilieto/uacme/acme"
	"github.com/dilieto/uacme/acme/acmeerr"
	"github.com/dilieto/uacme/acme/csr"
	"github.com/dilieto/uacme/acme/resources"
)

// pollInterval is the fixed delay between polls of an in-progress order,
// authorization, or challenge.
const pollInterval = 5 * time.Second

type newOrderRequest struct {
	Identifiers []resources.Identifier `json:"identifiers"`
}

// NewOrder creates an order for names, returning it with its ID and Status
// populated from the server's response.
//
// See https://www.rfc-editor.org/rfc/rfc8555#section-7.4
func (c *Client) NewOrder(names []string) (*resources.Order, error) {
	if c.AccountID() == "" {
		return nil, &acmeerr.ConfigError{Msg: "NewOrder: no account loaded"}
	}

	newOrderURL, ok := c.endpointURL(acme.NewOrderEndpoint)
	if !ok {
		return nil, &acmeerr.ProtocolError{Msg: "server directory missing newOrder"}
	}

	ids := make([]resources.Identifier, len(names))
	for i, n := range names {
		ids[i] = resources.Identifier{Type: "dns", Value: n}
	}

	body, err := json.Marshal(newOrderRequest{Identifiers: ids})
	if err != nil {
		return nil, err
	}

	resp, err := c.postSigned(newOrderURL, body, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, &acmeerr.ProtocolError{Msg: fmt.Sprintf("newOrder returned status %d, expected 201", resp.StatusCode)}
	}

	loc := resp.Header.Get(acme.LocationHeader)
	if loc == "" {
		return nil, &acmeerr.ProtocolError{Msg: "newOrder response had no Location header"}
	}

	var order resources.Order
	if err := json.Unmarshal(resp.Body, &order); err != nil {
		return nil, &acmeerr.ProtocolError{Msg: fmt.Sprintf("newOrder body invalid: %s", err)}
	}
	order.ID = loc

	switch order.Status {
	case "pending", "ready":
	default:
		return nil, &acmeerr.ProtocolError{Msg: fmt.Sprintf("newOrder returned unexpected status %q", order.Status)}
	}

	return &order, nil
}

// fetchOrder POST-as-GETs the order's current representation, updating it
// in place.
func (c *Client) fetchOrder(order *resources.Order) error {
	resp, err := c.postSigned(order.ID, []byte{}, nil)
	if err != nil {
		return err
	}
	id := order.ID
	if err := json.Unmarshal(resp.Body, order); err != nil {
		return &acmeerr.ProtocolError{Msg: fmt.Sprintf("order body invalid: %s", err)}
	}
	order.ID = id
	return nil
}

// WaitReady runs the authorization & challenge driver over every pending
// authorization of order, then polls until the order reaches "ready".
func (c *Client) WaitReady(ctx context.Context, order *resources.Order, hookPath string) error {
	if order.Status == "ready" {
		return nil
	}
	if order.Status != "pending" {
		return &acmeerr.ProtocolError{Msg: fmt.Sprintf("order has unexpected status %q, expected pending", order.Status)}
	}

	for _, authzURL := range order.Authorizations {
		if err := c.satisfyAuthorization(ctx, authzURL, hookPath); err != nil {
			return err
		}
	}

	for {
		if err := c.fetchOrder(order); err != nil {
			return err
		}
		switch order.Status {
		case "ready":
			return nil
		case "pending":
			if err := sleepCtx(ctx, pollInterval); err != nil {
				return err
			}
		default:
			return &acmeerr.ProtocolError{Msg: fmt.Sprintf("order entered unexpected status %q while awaiting ready", order.Status)}
		}
	}
}

// Finalize submits a CSR for names signed by domainKey, then polls the
// order until it becomes valid and downloads the resulting certificate
// chain.
func (c *Client) Finalize(ctx context.Context, order *resources.Order, names []string, domainKey crypto.Signer) ([]byte, error) {
	if order.Status != "ready" {
		return nil, &acmeerr.ProtocolError{Msg: fmt.Sprintf("Finalize: order has status %q, expected ready", order.Status)}
	}

	_, b64DER, err := csr.Generate(names, domainKey)
	if err != nil {
		return nil, &acmeerr.KeyError{Msg: "generating CSR", Err: err}
	}

	body, err := json.Marshal(struct {
		CSR string `json:"csr"`
	}{CSR: b64DER})
	if err != nil {
		return nil, err
	}

	resp, err := c.postSigned(order.Finalize, body, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &acmeerr.ProtocolError{Msg: fmt.Sprintf("finalize returned status %d, expected 200", resp.StatusCode)}
	}

	for {
		if err := c.fetchOrder(order); err != nil {
			return nil, err
		}
		switch order.Status {
		case "valid":
			return c.downloadCertificate(order.Certificate)
		case "processing":
			if err := sleepCtx(ctx, pollInterval); err != nil {
				return nil, err
			}
		default:
			return nil, &acmeerr.ProtocolError{Msg: fmt.Sprintf("order entered unexpected status %q while awaiting valid", order.Status)}
		}
	}
}

func (c *Client) downloadCertificate(certURL string) ([]byte, error) {
	if certURL == "" {
		return nil, &acmeerr.ProtocolError{Msg: "valid order has no certificate URL"}
	}
	resp, err := c.postSigned(certURL, []byte{}, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &acmeerr.ProtocolError{Msg: fmt.Sprintf("certificate download returned status %d, expected 200", resp.StatusCode)}
	}
	return resp.Body, nil
}

// sleepCtx sleeps for d or returns ctx.Err() if ctx is canceled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
