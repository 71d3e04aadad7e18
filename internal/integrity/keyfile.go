package integrity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// keyFileName is hidden so directory scans for segments never pick it up.
const keyFileName = ".audit_secret"

// FileKeyProvider persists one random key per directory. The first request
// generates a 32-byte key and writes it hex-encoded with owner-only
// permissions; later requests (and later process runs) read it back.
type FileKeyProvider struct {
	dir string
}

// NewFileKeyProvider stores keys inside dir.
func NewFileKeyProvider(dir string) *FileKeyProvider {
	return &FileKeyProvider{dir: dir}
}

// Key loads or creates the key for name. The name keeps distinct key files
// apart should one directory ever serve several signing purposes.
func (p *FileKeyProvider) Key(name string) ([]byte, error) {
	path := filepath.Join(p.dir, keyFileName)
	if name != "" && name != "audit" {
		path = filepath.Join(p.dir, keyFileName+"."+name)
	}
	if b, err := os.ReadFile(path); err == nil {
		key, derr := hex.DecodeString(strings.TrimSpace(string(b)))
		if derr == nil && len(key) == 32 {
			return key, nil
		}
		return nil, fmt.Errorf("integrity: malformed key file %s", path)
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("integrity: generate key: %w", err)
	}
	if err := os.MkdirAll(p.dir, 0o750); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key)), 0o600); err != nil {
		return nil, fmt.Errorf("integrity: persist key: %w", err)
	}
	return key, nil
}
