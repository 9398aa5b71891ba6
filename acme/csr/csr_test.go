package csr

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeneratePicksNonWildcardCommonName(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	der, b64, err := Generate([]string{"*.example.com", "example.com", "www.example.com"}, key)
	require.NoError(t, err)
	require.NotEmpty(t, b64)

	csr, err := x509.ParseCertificateRequest(der)
	require.NoError(t, err)
	require.Equal(t, "example.com", csr.Subject.CommonName)
	require.ElementsMatch(t, []string{"*.example.com", "example.com", "www.example.com"}, csr.DNSNames)
}

func TestGenerateFallsBackToFirstNameWhenAllWildcard(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	der, _, err := Generate([]string{"*.example.com"}, key)
	require.NoError(t, err)

	csr, err := x509.ParseCertificateRequest(der)
	require.NoError(t, err)
	require.Equal(t, "*.example.com", csr.Subject.CommonName)
}

func TestGenerateRejectsEmptyNames(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	_, _, err = Generate(nil, key)
	require.Error(t, err)
}
