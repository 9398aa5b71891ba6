package keys

import (
	"crypto"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
)

// keyFileMode is the permission mode for a persisted private key, matching
// the confdir layout's private/<domain>/key.pem invariant.
const keyFileMode = 0600

// dirMode is the permission mode for a newly created private key directory.
const dirMode = 0700

// LoadOrCreate loads the PEM encoded private key at path, or, if it does not
// exist and createAllowed is true, generates a new key of the given type,
// writes it to path, and returns it. The parent directory of path is
// created with dirMode if missing.
//
// keyType is one of "ecdsa" or "rsa", matching NewSigner.
func LoadOrCreate(path, keyType string, createAllowed bool) (crypto.Signer, error) {
	pemBytes, err := os.ReadFile(path)
	switch {
	case err == nil:
		return signerFromPEM(pemBytes)
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("reading key %q: %w", path, err)
	case !createAllowed:
		return nil, fmt.Errorf("key %q does not exist", path)
	}

	signer, err := NewSigner(keyType)
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return nil, fmt.Errorf("creating key directory: %w", err)
	}

	pemStr, err := SignerToPEM(signer)
	if err != nil {
		return nil, fmt.Errorf("marshaling key: %w", err)
	}

	if err := os.WriteFile(path, []byte(pemStr), keyFileMode); err != nil {
		return nil, fmt.Errorf("writing key %q: %w", path, err)
	}

	return signer, nil
}

func signerFromPEM(pemBytes []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	var keyType string
	switch block.Type {
	case "EC PRIVATE KEY":
		keyType = "ecdsa"
	case "RSA PRIVATE KEY":
		keyType = "rsa"
	default:
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}

	return UnmarshalSigner(block.Bytes, keyType)
}
