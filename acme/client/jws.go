package client

import (
	"crypto"
	"errors"
	"fmt"

	"github.com/dilieto/uacme/acme/keys"

	jose "github.com/go-jose/go-jose/v4"
)

// SigningOptions controls how a request body is wrapped in a JWS.
type SigningOptions struct {
	// If true, embed the account's public key as a JWK in the signed JWS
	// instead of using a KeyID header. Used for newAccount, where the
	// account URL is not yet known. Mutually exclusive with a non-empty
	// KeyID.
	EmbedKey bool
	// KeyID, if not empty, is the account URL used for the JWS "kid"
	// header. Mutually exclusive with EmbedKey.
	KeyID string
	// Signer is the keypair to sign with. If nil, the Client's account
	// signer is used.
	Signer crypto.Signer
	// NonceSource supplies the Replay-Nonce header value. If nil, the
	// Client itself is used.
	NonceSource jose.NonceSource
}

func (opts *SigningOptions) validate() error {
	if opts.KeyID != "" && opts.EmbedKey {
		return errors.New("SigningOptions: cannot specify both KeyID and EmbedKey")
	}
	if opts.KeyID == "" && !opts.EmbedKey {
		return errors.New("SigningOptions: must specify a KeyID or EmbedKey")
	}
	if opts.NonceSource == nil {
		return errors.New("SigningOptions: must specify a NonceSource")
	}
	if opts.Signer == nil {
		return errors.New("SigningOptions: must specify a signer")
	}
	return nil
}

// SignResult holds the input and output of a Sign operation.
type SignResult struct {
	InputURL      string
	InputData     []byte
	JWS           *jose.JSONWebSignature
	SerializedJWS []byte
}

// Sign produces a flattened-serialization JWS of data for the given request
// URL. If opts.Signer is nil, the Client's account signer is used; if
// neither EmbedKey nor KeyID is set, the Client's account ID (kid) is used.
// If opts.NonceSource is nil, the Client itself supplies nonces.
func (c *Client) Sign(url string, data []byte, opts *SigningOptions) (*SignResult, error) {
	if opts == nil {
		opts = &SigningOptions{}
	}

	if opts.Signer == nil {
		if c.Account == nil || c.Account.Signer == nil {
			return nil, errors.New("Sign: no Signer in SigningOptions and no account signer set")
		}
		opts.Signer = c.Account.Signer
	}

	if !opts.EmbedKey && opts.KeyID == "" {
		if c.Account == nil || c.Account.ID == "" {
			return nil, errors.New("Sign: no KeyID or EmbedKey in SigningOptions and no account ID set")
		}
		opts.KeyID = c.Account.ID
	}

	if opts.NonceSource == nil {
		opts.NonceSource = c
	}

	if err := opts.validate(); err != nil {
		return nil, err
	}

	if opts.EmbedKey {
		return signEmbedded(url, data, *opts)
	}
	return signKeyID(url, data, *opts)
}

func signEmbedded(url string, data []byte, opts SigningOptions) (*SignResult, error) {
	signingKey := keys.SigningKeyForSigner(opts.Signer, "")

	signer, err := jose.NewSigner(signingKey, &jose.SignerOptions{
		NonceSource: opts.NonceSource,
		EmbedJWK:    true,
		ExtraHeaders: map[jose.HeaderKey]interface{}{
			"url": url,
		},
	})
	if err != nil {
		return nil, err
	}

	return sign(signer, url, data)
}

func signKeyID(url string, data []byte, opts SigningOptions) (*SignResult, error) {
	signingKey := keys.SigningKeyForSigner(opts.Signer, opts.KeyID)

	signer, err := jose.NewSigner(signingKey, &jose.SignerOptions{
		NonceSource: opts.NonceSource,
		ExtraHeaders: map[jose.HeaderKey]interface{}{
			"url": url,
		},
	})
	if err != nil {
		return nil, err
	}

	return sign(signer, url, data)
}

func sign(signer jose.Signer, url string, data []byte) (*SignResult, error) {
	signed, err := signer.Sign(data)
	if err != nil {
		return nil, err
	}

	serialized := []byte(signed.FullSerialize())

	// Reparse so the caller gets a fully populated JWS object, not just bytes.
	parsedJWS, err := jose.ParseSigned(string(serialized), []jose.SignatureAlgorithm{
		jose.ES256, jose.RS256,
	})
	if err != nil {
		return nil, fmt.Errorf("reparsing signed JWS: %w", err)
	}

	return &SignResult{
		InputURL:      url,
		InputData:     data,
		JWS:           parsedJWS,
		SerializedJWS: serialized,
	}, nil
}

// PostAsGet signs an empty payload for url, the convention ACME uses for
// authenticated GET requests (POST-as-GET).
func (c *Client) PostAsGet(url string) (*SignResult, error) {
	return c.Sign(url, []byte{}, nil)
}
