// Package credentials defines the CredentialReader interface the core
// consumes for AniDB login (spec §1's "core consumes a credential
// reader"), plus a config-file-backed default implementation.
//
// No OS-keyring dependency appears anywhere in the example pack, so the
// default reader here is explicitly a stand-in: production deployments
// are expected to supply their own CredentialReader backed by a real
// OS keychain.
package credentials

import (
	"github.com/kraklabs/anidbclient/internal/config"
	"github.com/kraklabs/anidbclient/internal/errs"
)

// Credentials is the (username, password) pair AUTH needs.
type Credentials struct {
	Username string
	Password string
}

// Reader retrieves stored AniDB credentials.
type Reader interface {
	Read() (Credentials, error)
}

// Writer persists AniDB credentials. Implemented by the same stand-in
// that implements Reader, so `anidb auth login` can write what `anidb
// auth status` later reads.
type Writer interface {
	Write(Credentials) error
	Clear() error
}

// ReadWriter is the CLI's concrete collaborator type.
type ReadWriter interface {
	Reader
	Writer
}

// configFileStore implements ReadWriter by reading/writing the `auth`
// section of the CLI's config.yaml. This is a plaintext stand-in, not
// a production-grade secret store.
type configFileStore struct {
	path string
}

// NewConfigFileStore builds a ReadWriter backed by the config file at path.
func NewConfigFileStore(path string) ReadWriter {
	return &configFileStore{path: path}
}

func (c *configFileStore) Read() (Credentials, error) {
	cfg, err := config.Load(c.path)
	if err != nil {
		return Credentials{}, err
	}
	if cfg.Auth.Username == "" {
		return Credentials{}, errs.New(errs.ValidationMissingField, "no stored credentials; run `anidb auth login`")
	}
	return Credentials{Username: cfg.Auth.Username, Password: cfg.Auth.Password}, nil
}

func (c *configFileStore) Write(creds Credentials) error {
	cfg, err := config.Load(c.path)
	if err != nil {
		cfg = config.Default()
	}
	cfg.Auth.Username = creds.Username
	cfg.Auth.Password = creds.Password
	return config.Save(c.path, cfg)
}

func (c *configFileStore) Clear() error {
	cfg, err := config.Load(c.path)
	if err != nil {
		return err
	}
	cfg.Auth.Username = ""
	cfg.Auth.Password = ""
	return config.Save(c.path, cfg)
}
