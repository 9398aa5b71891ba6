// Command uacme obtains, renews, and revokes ACME certificates from the
// command line.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/dilieto/uacme/acme"
	"github.com/dilieto/uacme/acme/acmeerr"
	"github.com/dilieto/uacme/cmd"
	"github.com/dilieto/uacme/internal/app"
)

const version = "1.0.0"

type verbosity int

func (v *verbosity) String() string { return fmt.Sprintf("%d", int(*v)) }
func (v *verbosity) Set(string) error {
	*v++
	return nil
}
func (v *verbosity) IsBoolFlag() bool { return true }

func usage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(fs.Output(), "usage: uacme [-a URL] [-c DIR] [-d DAYS] [-f] [-h HOOK] [-n] [-r REASON]\n"+
			"\t[-s] [-v ...] [-V] [-y] [-?]\n"+
			"\tnew [EMAIL] | update [EMAIL] | deactivate\n"+
			"\t| issue DOMAIN [ALTNAME ...]\n"+
			"\t| revoke CERTFILE\n")
		fs.PrintDefaults()
	}
}

func main() {
	fs := flag.NewFlagSet("uacme", flag.ContinueOnError)
	fs.Usage = usage(fs)

	directoryURL := fs.String("a", "", "override the ACME directory URL")
	confDir := fs.String("c", acme.DefaultConfDir, "configuration directory")
	minDays := fs.Int("d", 30, "minimum remaining certificate validity, in days, before renewal")
	force := fs.Bool("f", false, "force reissue even if the certificate is still valid")
	hookPath := fs.String("h", "", "path to the challenge provisioning hook program")
	noCreate := fs.Bool("n", false, "never create missing directories or keys")
	staging := fs.Bool("s", false, "use the ACME staging directory")
	printVersion := fs.Bool("V", false, "print version and exit")
	yes := fs.Bool("y", false, "auto-accept the CA's terms of service")
	reason := fs.Int("r", 0, "revocation reason code (revoke only)")
	help := fs.Bool("?", false, "print this help and exit")
	var verbose verbosity
	fs.Var(&verbose, "v", "raise logging verbosity (repeatable)")

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	if *printVersion {
		fmt.Printf("uacme %s\n", version)
		return
	}
	if *help {
		fs.Usage()
		return
	}

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		os.Exit(2)
	}
	action, actionArgs := args[0], args[1:]

	dirURL := *directoryURL
	if dirURL == "" {
		dirURL = acme.ProductionDirectoryURL
		if *staging {
			dirURL = acme.StagingDirectoryURL
		}
	}

	cfg := app.Config{
		DirectoryURL: dirURL,
		ConfDir:      *confDir,
		MinDays:      *minDays,
		Force:        *force,
		HookPath:     *hookPath,
		NoCreate:     *noCreate,
		TermsAgreed:  *yes,
		RevokeReason: *reason,
	}

	ctx, stop := cmd.SignalContext(context.Background())
	defer stop()
	ctx = cmd.WithVerbosity(ctx, int(verbose))

	err := app.Run(ctx, cfg, action, actionArgs)

	var skip *acmeerr.PrecheckSkip
	if errors.As(err, &skip) {
		cmd.VLog(ctx, 1, "%s", skip.Error())
		return
	}

	cmd.FailOnError(err, fmt.Sprintf("%s failed", action))
}
