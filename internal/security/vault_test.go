package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "stockdesk/internal/errors"
)

func TestVaultSealOpen(t *testing.T) {
	v, err := NewVault("correct horse")
	if err != nil {
		t.Fatal(err)
	}

	sealed, err := v.Seal("JBSWY3DPEHPK3PXP")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(sealed, sealedPrefix) || strings.Contains(sealed, "JBSWY3DPEHPK3PXP") {
		t.Fatalf("sealed = %q", sealed)
	}
	again, _ := v.Seal("JBSWY3DPEHPK3PXP")
	if again == sealed {
		t.Error("two seals of the same value should differ")
	}

	got, err := v.Open(sealed)
	if err != nil || got != "JBSWY3DPEHPK3PXP" {
		t.Errorf("Open = %q, %v", got, err)
	}

	if s, _ := v.Seal(""); s != "" {
		t.Errorf("Seal(\"\") = %q", s)
	}
	if got, err := v.Open("LEGACYPLAINTEXT"); err != nil || got != "LEGACYPLAINTEXT" {
		t.Errorf("unsealed values pass through, got %q, %v", got, err)
	}
}

func TestVaultRejectsWrongKey(t *testing.T) {
	a, _ := NewVault("key-a")
	b, _ := NewVault("key-b")

	sealed, err := a.Seal("secret")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Open(sealed); !apperrors.Is(err, apperrors.ErrCredentialAccess) {
		t.Errorf("wrong key: err = %v", err)
	}
	if _, err := a.Open(sealedPrefix + "!!"); !apperrors.Is(err, apperrors.ErrCredentialAccess) {
		t.Errorf("malformed: err = %v", err)
	}
	if _, err := NewVault(""); err == nil {
		t.Error("empty passphrase should be rejected")
	}
}

func TestLoadOrCreateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "secret.key")

	first, err := LoadOrCreateKey(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != EncryptionKeySize*2 {
		t.Errorf("key length = %d", len(first))
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("key file mode = %v", info.Mode().Perm())
	}

	second, err := LoadOrCreateKey(path)
	if err != nil || second != first {
		t.Errorf("reload = %q, %v; want %q", second, err, first)
	}
}
