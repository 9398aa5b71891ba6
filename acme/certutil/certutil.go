// Package certutil provides certificate chain validity checks and
// persistence helpers for the on-disk certificate layout.
package certutil

import (
	"bytes"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ParseChain decodes a sequence of PEM encoded certificates, in leaf-first
// order, as returned by the ACME certificate download endpoint.
func ParseChain(pemBytes []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	rest := pemBytes
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing certificate: %w", err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("no certificates found in PEM input")
	}
	return certs, nil
}

// Valid reports whether dir/cert.pem exists, parses, has at least minDays
// of validity remaining on its leaf certificate, and its SAN set exactly
// equals names. Any failure to satisfy these is reported as false, never
// as an error: an absent or broken certificate simply means issuance is
// needed.
func Valid(dir string, names []string, minDays int) bool {
	pemBytes, err := os.ReadFile(filepath.Join(dir, "cert.pem"))
	if err != nil {
		return false
	}

	chain, err := ParseChain(pemBytes)
	if err != nil {
		return false
	}
	leaf := chain[0]

	if time.Until(leaf.NotAfter) < time.Duration(minDays)*24*time.Hour {
		return false
	}

	return sameNames(leaf.DNSNames, names)
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

// DERBase64URL loads a single PEM certificate from path and returns the
// base64url (no padding) encoding of its DER bytes, the form the
// revokeCert request's "certificate" field requires.
func DERBase64URL(path string) (string, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil || block.Type != "CERTIFICATE" {
		return "", fmt.Errorf("%s: no CERTIFICATE PEM block found", path)
	}
	return base64.RawURLEncoding.EncodeToString(block.Bytes), nil
}

// WriteChain persists a PEM certificate chain to dir/cert.pem atomically:
// write to a temp file in the same directory, then rename over the final
// path, with mode 0644.
func WriteChain(dir string, pemChain []byte) error {
	final := filepath.Join(dir, "cert.pem")
	tmp := final + ".tmp"

	if err := os.WriteFile(tmp, pemChain, 0644); err != nil {
		return fmt.Errorf("writing temporary certificate file: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("renaming certificate file into place: %w", err)
	}
	return nil
}

// EncodeChain PEM-encodes the raw DER of parsed certificates, in the order
// given (leaf first for a chain from ParseChain). The certificate download
// endpoint's body is already PEM, so this is used only when re-serializing
// a parsed chain.
func EncodeChain(certs []*x509.Certificate) []byte {
	var buf bytes.Buffer
	for _, c := range certs {
		_ = pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: c.Raw})
	}
	return buf.Bytes()
}
