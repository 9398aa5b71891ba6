package certutil

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func selfSigned(t *testing.T, names []string, notAfter time.Time) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: names[0]},
		DNSNames:     names,
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     notAfter,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: der})
	require.NoError(t, err)
	return buf.Bytes()
}

func TestValidAcceptsFreshMatchingChain(t *testing.T) {
	dir := t.TempDir()
	names := []string{"example.com", "www.example.com"}
	pemBytes := selfSigned(t, names, time.Now().Add(60*24*time.Hour))

	require.NoError(t, WriteChain(dir, pemBytes))
	require.True(t, Valid(dir, names, 30))
	require.True(t, Valid(dir, []string{"www.example.com", "example.com"}, 30))
}

func TestValidRejectsNearExpiry(t *testing.T) {
	dir := t.TempDir()
	names := []string{"example.com"}
	pemBytes := selfSigned(t, names, time.Now().Add(5*24*time.Hour))

	require.NoError(t, WriteChain(dir, pemBytes))
	require.False(t, Valid(dir, names, 30))
}

func TestValidRejectsMismatchedNames(t *testing.T) {
	dir := t.TempDir()
	pemBytes := selfSigned(t, []string{"example.com"}, time.Now().Add(60*24*time.Hour))

	require.NoError(t, WriteChain(dir, pemBytes))
	require.False(t, Valid(dir, []string{"other.com"}, 30))
}

func TestValidRejectsMissingFile(t *testing.T) {
	require.False(t, Valid(t.TempDir(), []string{"example.com"}, 30))
}

func TestWriteChainIsAtomic(t *testing.T) {
	dir := t.TempDir()
	pemBytes := selfSigned(t, []string{"example.com"}, time.Now().Add(60*24*time.Hour))

	require.NoError(t, WriteChain(dir, pemBytes))

	_, err := os.Stat(filepath.Join(dir, "cert.pem.tmp"))
	require.True(t, os.IsNotExist(err))

	written, err := os.ReadFile(filepath.Join(dir, "cert.pem"))
	require.NoError(t, err)
	require.Equal(t, pemBytes, written)
}

func TestDERBase64URLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	pemBytes := selfSigned(t, []string{"example.com"}, time.Now().Add(60*24*time.Hour))
	path := filepath.Join(dir, "cert.pem")
	require.NoError(t, os.WriteFile(path, pemBytes, 0644))

	b64, err := DERBase64URL(path)
	require.NoError(t, err)
	require.NotEmpty(t, b64)

	chain, err := ParseChain(pemBytes)
	require.NoError(t, err)
	require.Len(t, chain, 1)

	der, err := base64.RawURLEncoding.DecodeString(b64)
	require.NoError(t, err)
	require.Equal(t, chain[0].Raw, der)

	reencoded := EncodeChain(chain)
	chain2, err := ParseChain(reencoded)
	require.NoError(t, err)
	require.Equal(t, chain[0].Raw, chain2[0].Raw)
}

func TestParseChainRejectsEmptyInput(t *testing.T) {
	_, err := ParseChain([]byte("not a pem file"))
	require.Error(t, err)
}
