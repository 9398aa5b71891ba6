// Package net provides the HTTP transport used to talk to an ACME server.
package net

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
)

const (
	version       = "1.0"
	userAgentBase = "uacme-go"
	locale        = "en-us"
)

// Config configures the transport's TLS trust roots. Unlike a development
// shell talking to a local test CA, a production client usually has no need
// to override the system roots, so CABundlePath is optional here.
type Config struct {
	// CABundlePath, if set, names a file of one or more PEM encoded CA
	// certificates to use as trust roots instead of the system pool.
	CABundlePath string
}

func (c *Config) normalize() {
	c.CABundlePath = strings.TrimSpace(c.CABundlePath)
}

// ACMENet is the HTTP transport: it performs GET and POST requests and
// returns the full response needed by the nonce manager and protocol driver
// layered on top of it.
type ACMENet struct {
	httpClient *http.Client
}

// New constructs an ACMENet. If conf.CABundlePath is empty the system trust
// roots are used.
func New(conf Config) (*ACMENet, error) {
	conf.normalize()

	tlsConfig := &tls.Config{}
	if conf.CABundlePath != "" {
		pemBundle, err := os.ReadFile(conf.CABundlePath)
		if err != nil {
			return nil, fmt.Errorf("reading CA bundle %q: %w", conf.CABundlePath, err)
		}
		caBundle := x509.NewCertPool()
		if !caBundle.AppendCertsFromPEM(pemBundle) {
			return nil, fmt.Errorf("no PEM certificates found in %q", conf.CABundlePath)
		}
		tlsConfig.RootCAs = caBundle
	}

	return &ACMENet{
		httpClient: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: tlsConfig,
			},
		},
	}, nil
}

// NetResponse is the fully captured result of one HTTP round trip: status,
// headers, and raw body.
type NetResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON reports whether the response Content-Type indicates a JSON body. ACME
// servers use both "application/json" and "application/problem+json".
func (r *NetResponse) JSON() bool {
	return strings.Contains(r.Header.Get("Content-Type"), "json")
}

// ContentType returns the response's Content-Type header, stripped of any
// parameters such as ";charset=utf-8".
func (r *NetResponse) ContentType() string {
	ct := r.Header.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

// TransportError distinguishes a network or TLS level failure from an
// ordinary (if unsuccessful) HTTP response, so the caller can tell "the
// server said no" from "we never reached the server".
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("requesting %s: %s", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (c *ACMENet) userAgent() string {
	return fmt.Sprintf("%s/%s (%s; %s)", userAgentBase, version, runtime.GOOS, runtime.GOARCH)
}

// Do executes req and captures its response. Network and TLS errors are
// returned wrapped in a *TransportError.
func (c *ACMENet) Do(req *http.Request) (*NetResponse, error) {
	req.Header.Set("User-Agent", c.userAgent())
	req.Header.Set("Accept-Language", locale)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: req.URL.String(), Err: err}
	}

	return &NetResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// PostRequest constructs a POST request to url with the given JWS body.
func (c *ACMENet) PostRequest(url string, body []byte) (*http.Request, error) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/jose+json")
	return req, nil
}

// PostURL POSTs body to url and returns the captured response.
func (c *ACMENet) PostURL(url string, body []byte) (*NetResponse, error) {
	req, err := c.PostRequest(url, body)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// GetRequest constructs a GET request to url.
func (c *ACMENet) GetRequest(url string) (*http.Request, error) {
	return http.NewRequest(http.MethodGet, url, nil)
}

// GetURL GETs url and returns the captured response.
func (c *ACMENet) GetURL(url string) (*NetResponse, error) {
	req, err := c.GetRequest(url)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}
