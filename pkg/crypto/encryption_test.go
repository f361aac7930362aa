package crypto

import (
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := NewEncryptor([]byte("short key"))
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}

	plaintext := "ya29.a0AfH6SMB-access-token"
	ciphertext, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if ciphertext == plaintext {
		t.Fatal("ciphertext must differ from plaintext")
	}

	got, err := enc.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != plaintext {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestEncryptEmptyIsEmpty(t *testing.T) {
	enc, _ := NewEncryptor([]byte("k"))
	ct, err := enc.Encrypt("")
	if err != nil || ct != "" {
		t.Fatalf("empty plaintext: %q %v", ct, err)
	}
	pt, err := enc.Decrypt("")
	if err != nil || pt != "" {
		t.Fatalf("empty ciphertext: %q %v", pt, err)
	}
}

func TestNewEncryptorRejectsEmptyKey(t *testing.T) {
	if _, err := NewEncryptor(nil); err == nil {
		t.Fatal("empty key must be rejected")
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	enc, _ := NewEncryptor([]byte("key"))
	ct, err := enc.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	// Flip a character inside the base64 payload.
	tampered := []byte(ct)
	if tampered[10] == 'A' {
		tampered[10] = 'B'
	} else {
		tampered[10] = 'A'
	}
	if _, err := enc.Decrypt(string(tampered)); err == nil {
		t.Fatal("tampered ciphertext must fail authentication")
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	enc, _ := NewEncryptor([]byte("key"))
	if _, err := enc.Decrypt("not base64 at all!!!"); err == nil {
		t.Fatal("invalid base64 must fail")
	}
	if _, err := enc.Decrypt("c2hvcnQ="); err == nil { // "short", below nonce size
		t.Fatal("too-short payload must fail")
	}
}

func TestDifferentKeysCannotDecrypt(t *testing.T) {
	a, _ := NewEncryptor([]byte("key-a"))
	b, _ := NewEncryptor([]byte("key-b"))

	ct, _ := a.Encrypt("secret")
	if _, err := b.Decrypt(ct); err == nil {
		t.Fatal("a different key must not decrypt")
	}
}

func TestIsEncrypted(t *testing.T) {
	enc, _ := NewEncryptor([]byte("key"))
	ct, _ := enc.Encrypt("some credential value")

	if !IsEncrypted(ct) {
		t.Fatal("real ciphertext must be detected")
	}
	if IsEncrypted("ya29.plaintext-token") {
		t.Fatal("legacy plaintext must not be detected as encrypted")
	}
	if IsEncrypted("") {
		t.Fatal("empty string is not ciphertext")
	}
	if IsEncrypted(strings.Repeat("a", 8)) {
		t.Fatal("short base64 must not be detected")
	}
}
