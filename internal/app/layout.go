package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dilieto/uacme/acme/acmeerr"
)

const (
	confDirMode   = 0755
	privateMode   = 0700
	domainDirMode = 0755
)

// layout resolves the filesystem paths for one confdir, rooted per the
// fixed layout:
//
//	<confdir>/private/key.pem               account key
//	<confdir>/private/<domain>/key.pem       domain key
//	<confdir>/<domain>/cert.pem              certificate chain
type layout struct {
	confDir       string
	noCreate      bool
	accountKey    string
	domainKeyDir  string
	domainKeyPath string
	certDir       string
}

func newLayout(confDir string, domain string, noCreate bool) *layout {
	return &layout{
		confDir:       confDir,
		noCreate:      noCreate,
		accountKey:    filepath.Join(confDir, "private", "key.pem"),
		domainKeyDir:  filepath.Join(confDir, "private", domain),
		domainKeyPath: filepath.Join(confDir, "private", domain, "key.pem"),
		certDir:       filepath.Join(confDir, domain),
	}
}

// ensureDirs creates the confdir, private/, private/<domain>/, and
// <domain>/ directories with their fixed permissions, unless noCreate is
// set, in which case a missing directory is a fatal ConfigError.
func (l *layout) ensureDirs(needDomainDirs bool) error {
	dirs := []struct {
		path string
		mode os.FileMode
	}{
		{l.confDir, confDirMode},
		{filepath.Join(l.confDir, "private"), privateMode},
	}
	if needDomainDirs {
		dirs = append(dirs,
			struct {
				path string
				mode os.FileMode
			}{l.domainKeyDir, privateMode},
			struct {
				path string
				mode os.FileMode
			}{l.certDir, domainDirMode},
		)
	}

	for _, d := range dirs {
		if _, err := os.Stat(d.path); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return &acmeerr.ConfigError{Msg: fmt.Sprintf("checking %s: %s", d.path, err)}
		}
		if l.noCreate {
			return &acmeerr.ConfigError{Msg: fmt.Sprintf("%s does not exist and -n was given", d.path)}
		}
		if err := os.MkdirAll(d.path, d.mode); err != nil {
			return &acmeerr.ConfigError{Msg: fmt.Sprintf("creating %s: %s", d.path, err)}
		}
	}
	return nil
}
