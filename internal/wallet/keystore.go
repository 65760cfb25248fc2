package wallet

// Keystore is the external key provider of spec.md §6: a filesystem path
// holding a hex-encoded secp256k1 private key. It is the one place in
// this repo that touches disk on the wallet's behalf — the on-disk
// private-key file is explicitly outside the consensus core (spec.md
// §1), but the provider still needs a concrete, testable shape.
//
// The teacher's keystore.go round-tripped an x509-marshaled EC key;
// x509 has no secp256k1 OID, so this adapts the same load/generate/
// delete shape to a raw 32-byte scalar instead.

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"nanochain/internal/cryptoutil"
)

// keyFile is the on-disk JSON shape.
type keyFile struct {
	PrivHex string `json:"priv_hex"`
}

// Keystore loads or generates a private key at Path.
type Keystore struct {
	Path string
}

// NewKeystore returns a provider rooted at path.
func NewKeystore(path string) *Keystore {
	return &Keystore{Path: path}
}

// LoadOrGenerate loads the key at ks.Path, generating and persisting a
// fresh one if the file does not exist.
func (ks *Keystore) LoadOrGenerate() (*secp256k1.PrivateKey, error) {
	priv, err := ks.load()
	if err == nil {
		return priv, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	priv, err = cryptoutil.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	if err := ks.save(priv); err != nil {
		return nil, err
	}
	return priv, nil
}

func (ks *Keystore) load() (*secp256k1.PrivateKey, error) {
	raw, err := os.ReadFile(ks.Path)
	if err != nil {
		return nil, err
	}
	var kf keyFile
	if err := json.Unmarshal(raw, &kf); err != nil {
		return nil, fmt.Errorf("parse keystore: %w", err)
	}
	return cryptoutil.PrivateKeyFromHex(kf.PrivHex)
}

func (ks *Keystore) save(priv *secp256k1.PrivateKey) error {
	if dir := filepath.Dir(ks.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create keystore dir: %w", err)
		}
	}
	kf := keyFile{PrivHex: cryptoutil.PrivateKeyHex(priv)}
	raw, err := json.Marshal(kf)
	if err != nil {
		return err
	}
	return os.WriteFile(ks.Path, raw, 0o600)
}

// Delete removes the key file. Exposed explicitly for tests, per
// spec.md §6.
func (ks *Keystore) Delete() error {
	err := os.Remove(ks.Path)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
