// Package app implements the top-level action dispatcher: it takes a
// resolved Config (built by cmd/uacme's flag parsing) and drives the
// account/order/authorization pipeline against acme/client.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/dilieto/uacme/acme/acmeerr"
	"github.com/dilieto/uacme/acme/certutil"
	"github.com/dilieto/uacme/acme/client"
	"github.com/dilieto/uacme/acme/domain"
	"github.com/dilieto/uacme/acme/keys"
	"github.com/dilieto/uacme/cmd"
)

// Config is the fully resolved set of options a single action runs with.
type Config struct {
	DirectoryURL string
	ConfDir      string
	MinDays      int
	Force        bool
	HookPath     string
	NoCreate     bool
	TermsAgreed  bool
	CABundlePath string
	// RevokeReason is the RFC 5280 CRL reason code sent with revoke (-r).
	RevokeReason int
}

// pollTimeout bounds how long the order and authorization state machines
// are polled before giving up, so a stuck CA can't hang the process
// forever.
const pollTimeout = 10 * time.Minute

// Run dispatches one of the five actions against the resolved Config.
// args is whatever followed the action name on the command line (an
// optional email, a domain list, or a certificate file path).
func Run(ctx context.Context, cfg Config, action string, args []string) error {
	switch action {
	case "new":
		return runNew(ctx, cfg, args)
	case "update":
		return runUpdate(ctx, cfg, args)
	case "deactivate":
		return runDeactivate(ctx, cfg)
	case "issue":
		return runIssue(ctx, cfg, args)
	case "revoke":
		return runRevoke(ctx, cfg, args)
	default:
		return &acmeerr.ConfigError{Msg: fmt.Sprintf("unknown action %q", action)}
	}
}

func newClient(cfg Config) (*client.Client, error) {
	c, err := client.New(client.Config{
		DirectoryURL: cfg.DirectoryURL,
		CABundlePath: cfg.CABundlePath,
	})
	if err != nil {
		return nil, err
	}
	c.Prompt = promptYes
	return c, nil
}

func runNew(ctx context.Context, cfg Config, args []string) error {
	email := ""
	if len(args) > 0 {
		email = args[0]
	}

	l := newLayout(cfg.ConfDir, "", cfg.NoCreate)
	if err := l.ensureDirs(false); err != nil {
		return err
	}

	signer, err := keys.LoadOrCreate(l.accountKey, "ecdsa", !cfg.NoCreate)
	if err != nil {
		return &acmeerr.KeyError{Msg: "loading account key", Err: err}
	}

	c, err := newClient(cfg)
	if err != nil {
		return err
	}

	account, err := c.New(signer, email, cfg.TermsAgreed)
	if err != nil {
		return err
	}
	cmd.VLog(ctx, 1, "account created at %s", account.ID)
	return nil
}

func runUpdate(ctx context.Context, cfg Config, args []string) error {
	email := ""
	if len(args) > 0 {
		email = args[0]
	}

	l := newLayout(cfg.ConfDir, "", cfg.NoCreate)
	signer, err := keys.LoadOrCreate(l.accountKey, "ecdsa", false)
	if err != nil {
		return &acmeerr.KeyError{Msg: "loading account key", Err: err}
	}

	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	account, err := c.Retrieve(signer)
	if err != nil {
		return err
	}
	cmd.VLog(ctx, 1, "updating account at %s", account.ID)

	return c.Update(email)
}

func runDeactivate(ctx context.Context, cfg Config) error {
	l := newLayout(cfg.ConfDir, "", cfg.NoCreate)
	signer, err := keys.LoadOrCreate(l.accountKey, "ecdsa", false)
	if err != nil {
		return &acmeerr.KeyError{Msg: "loading account key", Err: err}
	}

	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	account, err := c.Retrieve(signer)
	if err != nil {
		return err
	}
	cmd.VLog(ctx, 1, "deactivating account at %s", account.ID)

	return c.Deactivate()
}

func runIssue(ctx context.Context, cfg Config, names []string) error {
	if len(names) == 0 {
		return &acmeerr.ConfigError{Msg: "issue requires at least one domain name"}
	}
	for _, n := range names {
		if err := domain.Validate(n); err != nil {
			return &acmeerr.ConfigError{Msg: err.Error()}
		}
	}

	primary := domain.StripWildcard(names[0])
	l := newLayout(cfg.ConfDir, primary, cfg.NoCreate)

	if !cfg.Force && certutil.Valid(l.certDir, names, cfg.MinDays) {
		return &acmeerr.PrecheckSkip{Msg: fmt.Sprintf("certificate for %v still valid for at least %d days", names, cfg.MinDays)}
	}

	if err := l.ensureDirs(true); err != nil {
		return err
	}

	accountKey, err := keys.LoadOrCreate(l.accountKey, "ecdsa", false)
	if err != nil {
		return &acmeerr.KeyError{Msg: "loading account key", Err: err}
	}
	domainKey, err := keys.LoadOrCreate(l.domainKeyPath, "ecdsa", !cfg.NoCreate)
	if err != nil {
		return &acmeerr.KeyError{Msg: "loading domain key", Err: err}
	}

	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	if _, err := c.Retrieve(accountKey); err != nil {
		return err
	}

	order, err := c.NewOrder(names)
	if err != nil {
		return err
	}
	cmd.VLog(ctx, 1, "order created at %s", order.ID)

	pollCtx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	if err := c.WaitReady(pollCtx, order, cfg.HookPath); err != nil {
		return err
	}

	chain, err := c.Finalize(pollCtx, order, names, domainKey)
	if err != nil {
		return err
	}

	if err := certutil.WriteChain(l.certDir, chain); err != nil {
		return err
	}
	cmd.VLog(ctx, 1, "certificate for %v saved under %s", names, l.certDir)
	return nil
}

func runRevoke(ctx context.Context, cfg Config, args []string) error {
	if len(args) == 0 {
		return &acmeerr.ConfigError{Msg: "revoke requires a certificate file path"}
	}
	certPath := args[0]

	derB64, err := certutil.DERBase64URL(certPath)
	if err != nil {
		return &acmeerr.ConfigError{Msg: err.Error()}
	}

	l := newLayout(cfg.ConfDir, "", cfg.NoCreate)
	signer, err := keys.LoadOrCreate(l.accountKey, "ecdsa", false)
	if err != nil {
		return &acmeerr.KeyError{Msg: "loading account key", Err: err}
	}

	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	if _, err := c.Retrieve(signer); err != nil {
		return err
	}

	if err := c.Revoke(derB64, cfg.RevokeReason); err != nil {
		return err
	}
	cmd.VLog(ctx, 1, "revoked %s", certPath)
	return nil
}
