// Package keystore persists a client's long-term identity keys to a
// JSON file on disk, grounded on original_source/client/crypto_utils.py's
// ClientCrypto.load_keys/save_keys (a keys/ directory, a single JSON
// file, os.chmod 0600 on the file). spec.md §6 fixes the wire shape;
// this adds the Ed25519 signing half from SPEC_FULL.md §3.
package keystore

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ghostwire/internal/model"
	"ghostwire/internal/protocol/envelope"
)

const (
	dirPerm  = 0o700
	filePerm = 0o600
)

// fileFormat is the on-disk JSON shape from spec.md §6, plus the two
// additive signing-key fields from SPEC_FULL.md §3.
type fileFormat struct {
	PrivateKey     string    `json:"private_key"`
	PublicKey      string    `json:"public_key"`
	SignPrivateKey string    `json:"sign_private_key"`
	SignPublicKey  string    `json:"sign_public_key"`
	CreatedAt      time.Time `json:"created_at"`
}

// Keystore manages one identity's persistence at dir/identity.json.
type Keystore struct {
	dir  string
	name string
}

// New constructs a Keystore rooted at dir, using "identity.json" as
// the file name.
func New(dir string) *Keystore {
	return &Keystore{dir: dir, name: "identity.json"}
}

func (k *Keystore) path() string {
	return filepath.Join(k.dir, k.name)
}

// LoadOrCreate loads the identity at dir/identity.json if present,
// otherwise generates a fresh one and persists it.
func (k *Keystore) LoadOrCreate() (*model.Identity, error) {
	if id, err := k.Load(); err == nil {
		return id, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	id, err := envelope.GenerateIdentity()
	if err != nil {
		return nil, fmt.Errorf("keystore: generate identity: %w", err)
	}
	id.CreatedAt = time.Now()
	if err := k.Save(id); err != nil {
		return nil, err
	}
	return id, nil
}

// Load reads and decodes the identity file, failing with
// os.ErrNotExist (wrapped) when absent so callers can distinguish
// "not yet created" from a corrupt file.
func (k *Keystore) Load() (*model.Identity, error) {
	raw, err := os.ReadFile(k.path())
	if err != nil {
		return nil, err
	}

	var ff fileFormat
	if err := json.Unmarshal(raw, &ff); err != nil {
		return nil, fmt.Errorf("keystore: decode %s: %w", k.path(), err)
	}

	priv, err := model.DecodeHexKey(ff.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("keystore: private_key: %w", err)
	}
	pub, err := model.DecodeHexKey(ff.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("keystore: public_key: %w", err)
	}
	signPriv, err := hex.DecodeString(ff.SignPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("keystore: sign_private_key: %w", err)
	}
	signPub, err := hex.DecodeString(ff.SignPublicKey)
	if err != nil {
		return nil, fmt.Errorf("keystore: sign_public_key: %w", err)
	}

	return &model.Identity{
		Priv:      priv,
		Pub:       pub,
		SignPriv:  signPriv,
		SignPub:   signPub,
		CreatedAt: ff.CreatedAt,
	}, nil
}

// Save writes id to dir/identity.json, creating the directory (0700)
// and setting file permissions to 0600, matching crypto_utils.py's
// os.chmod(keys_file, 0o600).
func (k *Keystore) Save(id *model.Identity) error {
	if err := os.MkdirAll(k.dir, dirPerm); err != nil {
		return fmt.Errorf("keystore: mkdir %s: %w", k.dir, err)
	}

	ff := fileFormat{
		PrivateKey:     hex.EncodeToString(id.Priv[:]),
		PublicKey:      id.PubHex(),
		SignPrivateKey: hex.EncodeToString(id.SignPriv),
		SignPublicKey:  id.SignPubHex(),
		CreatedAt:      id.CreatedAt,
	}

	raw, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return fmt.Errorf("keystore: encode: %w", err)
	}

	if err := os.WriteFile(k.path(), raw, filePerm); err != nil {
		return fmt.Errorf("keystore: write %s: %w", k.path(), err)
	}
	return os.Chmod(k.path(), filePerm)
}
