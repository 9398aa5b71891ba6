package app

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dilieto/uacme/acme/acmeerr"
	"github.com/dilieto/uacme/acme/keys"
)

func selfSignedPEM(t *testing.T, names []string, notAfter time.Time) []byte {
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

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

// scenario 3: a still-valid certificate short-circuits issuance entirely,
// making no HTTP calls at all (the directory URL resolves to a closed
// local port, so any attempted call would fail loudly).
func TestRunIssueSkipsRenewalWhenCertStillValid(t *testing.T) {
	confDir := filepath.Join(t.TempDir(), "uacme")
	names := []string{"example.com"}

	certDir := filepath.Join(confDir, "example.com")
	require.NoError(t, os.MkdirAll(certDir, 0755))
	certPath := filepath.Join(certDir, "cert.pem")
	require.NoError(t, os.WriteFile(certPath, selfSignedPEM(t, names, time.Now().Add(60*24*time.Hour)), 0644))

	before, err := os.Stat(certPath)
	require.NoError(t, err)

	cfg := Config{
		DirectoryURL: "http://127.0.0.1:1",
		ConfDir:      confDir,
		MinDays:      30,
	}

	err = Run(context.Background(), cfg, "issue", names)
	var skip *acmeerr.PrecheckSkip
	require.ErrorAs(t, err, &skip)

	after, err := os.Stat(certPath)
	require.NoError(t, err)
	require.Equal(t, before.ModTime(), after.ModTime())
}

// scenario 4: the same precondition, but -f forces the full issuance flow
// against a mock ACME server.
func TestRunIssueForcedRenewalRunsFullFlow(t *testing.T) {
	confDir := filepath.Join(t.TempDir(), "uacme")
	names := []string{"example.com"}

	certDir := filepath.Join(confDir, "example.com")
	require.NoError(t, os.MkdirAll(certDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(certDir, "cert.pem"), selfSignedPEM(t, names, time.Now().Add(60*24*time.Hour)), 0644))

	privateDir := filepath.Join(confDir, "private")
	require.NoError(t, os.MkdirAll(privateDir, 0700))
	accountSigner, err := keys.NewSigner("ecdsa")
	require.NoError(t, err)
	accountPEM, err := keys.SignerToPEM(accountSigner)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(privateDir, "key.pem"), []byte(accountPEM), 0600))

	var mux http.ServeMux
	srv := httptest.NewServer(&mux)
	defer srv.Close()

	challTriggered := false
	finalized := false
	newCertPEM := selfSignedPEM(t, names, time.Now().Add(90*24*time.Hour))

	mux.HandleFunc("/new-nonce", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Replay-Nonce", fmt.Sprintf("nonce-%d", time.Now().UnixNano()))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/directory", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"newNonce":   srv.URL + "/new-nonce",
			"newAccount": srv.URL + "/new-account",
			"newOrder":   srv.URL + "/new-order",
			"revokeCert": srv.URL + "/revoke-cert",
		})
	})
	mux.HandleFunc("/new-account", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Replay-Nonce", "n1")
		w.Header().Set("Location", srv.URL+"/acct/1")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "valid"})
	})
	mux.HandleFunc("/new-order", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Replay-Nonce", "n2")
		w.Header().Set("Location", srv.URL+"/order/1")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":         "pending",
			"identifiers":    []map[string]string{{"type": "dns", "value": "example.com"}},
			"authorizations": []string{srv.URL + "/authz/1"},
			"finalize":       srv.URL + "/order/1/finalize",
		})
	})
	mux.HandleFunc("/authz/1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Replay-Nonce", "n3")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":     "pending",
			"identifier": map[string]string{"type": "dns", "value": "example.com"},
			"challenges": []map[string]string{
				{"type": "http-01", "url": srv.URL + "/chall/1", "token": "T1", "status": "pending"},
			},
		})
	})
	mux.HandleFunc("/chall/1", func(w http.ResponseWriter, r *http.Request) {
		raw := payloadOf(t, r)
		w.Header().Set("Replay-Nonce", "n4")
		w.Header().Set("Content-Type", "application/json")
		if len(raw) > 0 {
			challTriggered = true
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"type": "http-01", "url": srv.URL + "/chall/1", "token": "T1", "status": "processing",
			})
			return
		}
		status := "processing"
		if challTriggered {
			status = "valid"
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"type": "http-01", "url": srv.URL + "/chall/1", "token": "T1", "status": status,
		})
	})
	mux.HandleFunc("/order/1", func(w http.ResponseWriter, r *http.Request) {
		status := "pending"
		switch {
		case finalized:
			status = "valid"
		case challTriggered:
			status = "ready"
		}
		w.Header().Set("Replay-Nonce", "n5")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":         status,
			"identifiers":    []map[string]string{{"type": "dns", "value": "example.com"}},
			"authorizations": []string{srv.URL + "/authz/1"},
			"finalize":       srv.URL + "/order/1/finalize",
			"certificate":    srv.URL + "/cert/1",
		})
	})
	mux.HandleFunc("/order/1/finalize", func(w http.ResponseWriter, r *http.Request) {
		finalized = true
		w.Header().Set("Replay-Nonce", "n6")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "processing"})
	})
	mux.HandleFunc("/cert/1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Replay-Nonce", "n7")
		w.Header().Set("Content-Type", "application/pem-certificate-chain")
		_, _ = w.Write(newCertPEM)
	})

	hookDir := t.TempDir()
	hookPath := filepath.Join(hookDir, "hook.sh")
	require.NoError(t, os.WriteFile(hookPath, []byte("#!/bin/sh\nexit 0\n"), 0755))

	cfg := Config{
		DirectoryURL: srv.URL + "/directory",
		ConfDir:      confDir,
		MinDays:      30,
		Force:        true,
		HookPath:     hookPath,
	}

	require.NoError(t, Run(context.Background(), cfg, "issue", names))

	written, err := os.ReadFile(filepath.Join(certDir, "cert.pem"))
	require.NoError(t, err)
	require.Equal(t, newCertPEM, written)
}

func payloadOf(t *testing.T, r *http.Request) []byte {
	t.Helper()
	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var env struct {
		Payload string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(body, &env))
	raw, err := base64.RawURLEncoding.DecodeString(env.Payload)
	require.NoError(t, err)
	return raw
}
