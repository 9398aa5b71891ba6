package client

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/letsencrypt/challtestsrv"
	"github.com/stretchr/testify/require"

	"github.com/dilieto/uacme/acme/hook"
	"github.com/dilieto/uacme/acme/keys"
)

// TestHookProvisionsRealHTTPOneResponse drives the hook subprocess contract
// against a real HTTP-01 challenge responder: the hook writes the token and
// key authorization to a spool file (the way a webroot-style provisioning
// hook would write a file for a web server to serve), and this test plays
// the part of the provisioning side-channel by loading the spool into a
// github.com/letsencrypt/challtestsrv responder and fetching it back over
// real HTTP, the same round trip an ACME server's validation request makes.
func TestHookProvisionsRealHTTPOneResponse(t *testing.T) {
	const addr = "127.0.0.1:14000"

	challSrv, err := challtestsrv.New(challtestsrv.Config{
		HTTPOneAddrs: []string{addr},
		Log:          log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)

	go challSrv.Run()
	defer challSrv.Shutdown()
	waitForListener(t, addr)

	signer, err := keys.NewSigner("ecdsa")
	require.NoError(t, err)
	token := "integration-token"
	keyAuth := keys.KeyAuth(signer, token)

	spool := filepath.Join(t.TempDir(), "spool")
	hookPath := writeSpoolHook(t, spool)

	attempt, err := hook.Begin(context.Background(), hookPath, "http-01", "example.org", token, keyAuth)
	require.NoError(t, err)
	require.True(t, attempt.Accepted())

	gotToken, gotKeyAuth := readSpool(t, spool)
	require.Equal(t, token, gotToken)
	require.Equal(t, keyAuth, gotKeyAuth)

	challSrv.AddHTTPOneChallenge(gotToken, gotKeyAuth)
	defer challSrv.DeleteHTTPOneChallenge(gotToken)

	resp, err := http.Get(fmt.Sprintf("http://%s/.well-known/acme-challenge/%s", addr, token))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, keyAuth, string(body))

	attempt.Release(true)
}

func writeSpoolHook(t *testing.T, spoolPath string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "provision.sh")
	script := fmt.Sprintf(`#!/bin/sh
if [ "$1" = "begin" ]; then
	printf '%%s\n%%s\n' "$4" "$5" > %q
fi
exit 0
`, spoolPath)
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func readSpool(t *testing.T, spoolPath string) (token, keyAuth string) {
	t.Helper()
	contents, err := os.ReadFile(spoolPath)
	require.NoError(t, err)
	lines := strings.SplitN(strings.TrimRight(string(contents), "\n"), "\n", 2)
	require.Len(t, lines, 2)
	return lines[0], lines[1]
}

func waitForListener(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("challenge server at %s never started listening", addr)
}
