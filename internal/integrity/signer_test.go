package integrity

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileKeyProviderStableAcrossLoads(t *testing.T) {
	dir := t.TempDir()
	p := NewFileKeyProvider(dir)
	k1, err := p.Key("audit")
	if err != nil {
		t.Fatalf("first key: %v", err)
	}
	if len(k1) != 32 {
		t.Fatalf("want 32-byte key, got %d", len(k1))
	}
	k2, err := NewFileKeyProvider(dir).Key("audit")
	if err != nil {
		t.Fatalf("second key: %v", err)
	}
	if string(k1) != string(k2) {
		t.Fatalf("key changed between loads")
	}
	st, err := os.Stat(filepath.Join(dir, keyFileName))
	if err != nil {
		t.Fatalf("stat key file: %v", err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Fatalf("key file permissions too open: %v", st.Mode())
	}
}

func TestSignVerify(t *testing.T) {
	s, err := NewSigner(NewFileKeyProvider(t.TempDir()), "audit")
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	data := []byte(`{"kind":"lead_created","seq":1}`)
	sig := s.Sign(data)
	if !s.Verify(data, sig) {
		t.Fatalf("valid signature rejected")
	}
	if s.Verify([]byte(`{"kind":"lead_created","seq":2}`), sig) {
		t.Fatalf("tampered data accepted")
	}
	if s.Verify(data, "zz-not-hex") {
		t.Fatalf("garbage signature accepted")
	}
}

func TestMalformedKeyFileRejected(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, keyFileName), []byte("short"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileKeyProvider(dir).Key("audit"); err == nil {
		t.Fatalf("expected error for malformed key file")
	}
}
