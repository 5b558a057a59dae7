package ledger

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/sha3"
	"gopkg.in/yaml.v3"

	"github.com/a2a-aptos/bidagent/internal/errors"
)

// ProfileFile is the layout of an aptos CLI config.yaml.
type ProfileFile struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile is one named credential entry.
type Profile struct {
	// PrivateKey is hex, optionally prefixed with "0x" or "ed25519-priv-0x"
	PrivateKey string `yaml:"private_key"`
	// PublicKey is informational; it is re-derived from PrivateKey
	PublicKey string `yaml:"public_key,omitempty"`
	// Account is the account address; derived from the key when empty
	Account string `yaml:"account,omitempty"`
	// RestURL is the node the profile was created against (optional)
	RestURL string `yaml:"rest_url,omitempty"`
	// Network is the network name (optional)
	Network string `yaml:"network,omitempty"`
}

// Account is a loaded signing identity. It implements [Signer].
type Account struct {
	Name    string
	address string
	key     ed25519.PrivateKey
}

// NewAccount builds an Account from a raw ed25519 key. An empty address is
// derived from the public key.
func NewAccount(name string, key ed25519.PrivateKey, address string) *Account {
	if address == "" {
		address = DeriveAddress(key.Public().(ed25519.PublicKey))
	}
	return &Account{Name: name, address: NormalizeAddress(address), key: key}
}

// Address implements Signer.
func (a *Account) Address() string { return a.address }

// PublicKey implements Signer.
func (a *Account) PublicKey() []byte { return a.key.Public().(ed25519.PublicKey) }

// Sign implements Signer.
func (a *Account) Sign(message []byte) []byte { return ed25519.Sign(a.key, message) }

// ed25519SingleKeyScheme is the authentication key scheme byte for a
// single ed25519 key.
const ed25519SingleKeyScheme = 0x00

// DeriveAddress computes the account address of a single-key ed25519 account:
// sha3-256(public_key || scheme).
func DeriveAddress(pub ed25519.PublicKey) string {
	buf := make([]byte, 0, len(pub)+1)
	buf = append(buf, pub...)
	buf = append(buf, ed25519SingleKeyScheme)
	sum := sha3.Sum256(buf)
	return "0x" + hex.EncodeToString(sum[:])
}

// ProfileSearchPaths returns the config files checked, in order, when no
// explicit path is given: ./.aptos/config.yaml then ~/.aptos/config.yaml.
func ProfileSearchPaths() []string {
	paths := []string{filepath.Join(".aptos", "config.yaml")}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".aptos", "config.yaml"))
	}
	return paths
}

// LoadProfile loads the named profile. path may be empty to search
// [ProfileSearchPaths].
func LoadProfile(name, path string) (*Account, error) {
	if path == "" {
		for _, candidate := range ProfileSearchPaths() {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			return nil, errors.NewNotFoundError("profile config", strings.Join(ProfileSearchPaths(), ", "))
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile config %s: %w", path, err)
	}

	var file ProfileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse profile config %s: %w", path, err)
	}

	profile, ok := file.Profiles[name]
	if !ok {
		return nil, errors.NewNotFoundError("profile", name)
	}
	if profile.PrivateKey == "" {
		return nil, errors.NewValidationError("private key not set").WithField("profiles." + name + ".private_key")
	}

	key, err := ParsePrivateKey(profile.PrivateKey)
	if err != nil {
		return nil, errors.Wrapf(err, "profile %q", name)
	}
	return NewAccount(name, key, profile.Account), nil
}

// ParsePrivateKey decodes a hex ed25519 seed in any of the forms the aptos
// CLI writes.
func ParsePrivateKey(s string) (ed25519.PrivateKey, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "ed25519-priv-")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	seed, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.NewValidationError("private key is not valid hex").WithField("private_key")
	}
	if len(seed) != ed25519.SeedSize {
		return nil, errors.NewValidationError(fmt.Sprintf("private key must be %d bytes", ed25519.SeedSize)).
			WithField("private_key").WithValue(len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}
