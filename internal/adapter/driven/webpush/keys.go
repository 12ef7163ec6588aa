package webpush

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	wp "github.com/SherClockHolmes/webpush-go"
	"gopkg.in/yaml.v3"
)

// Keys is a VAPID key pair in unpadded base64url, as used by browsers.
type Keys struct {
	PublicKey  string `yaml:"public_key"`
	PrivateKey string `yaml:"private_key"`
}

// LoadOrCreateKeys reads the key pair stored at path, generating and saving a
// new pair when the file does not exist yet.
func LoadOrCreateKeys(path string) (Keys, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		var keys Keys
		if err := yaml.Unmarshal(data, &keys); err != nil {
			return Keys{}, fmt.Errorf("parse vapid key file %s: %w", path, err)
		}
		if keys.PublicKey == "" || keys.PrivateKey == "" {
			return Keys{}, fmt.Errorf("vapid key file %s is incomplete", path)
		}
		return keys, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return Keys{}, fmt.Errorf("read vapid key file: %w", err)
	}

	private, public, err := wp.GenerateVAPIDKeys()
	if err != nil {
		return Keys{}, fmt.Errorf("generate vapid keys: %w", err)
	}
	keys := Keys{PublicKey: public, PrivateKey: private}

	out, err := yaml.Marshal(keys)
	if err != nil {
		return Keys{}, fmt.Errorf("encode vapid keys: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return Keys{}, fmt.Errorf("create vapid key directory: %w", err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return Keys{}, fmt.Errorf("write vapid key file: %w", err)
	}
	return keys, nil
}
