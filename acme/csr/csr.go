// Package csr generates PKCS#10 certificate signing requests for ACME
// order finalization.
package csr

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"fmt"
	"strings"
)

// Generate builds a CSR over names signed by domainKey. The common name is
// the first name in the list that does not carry a wildcard prefix,
// falling back to names[0] if every name is a wildcard. It returns the raw
// DER encoding and its base64url (no padding) form, the shape the
// finalize request's "csr" field requires.
func Generate(names []string, domainKey crypto.Signer) (der []byte, b64url string, err error) {
	if len(names) == 0 {
		return nil, "", fmt.Errorf("csr.Generate: no names given")
	}

	template := &x509.CertificateRequest{
		Subject:  pkix.Name{CommonName: commonName(names)},
		DNSNames: names,
	}

	der, err = x509.CreateCertificateRequest(rand.Reader, template, domainKey)
	if err != nil {
		return nil, "", err
	}

	return der, base64.RawURLEncoding.EncodeToString(der), nil
}

func commonName(names []string) string {
	for _, n := range names {
		if !strings.HasPrefix(n, "*.") {
			return n
		}
	}
	return names[0]
}
