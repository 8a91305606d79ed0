package util

import (
	"bytes"
	"crypto/sha256"
	"crypto/x509"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

func TestGCM(t *testing.T) {
	key, _ := NewAESKey()
	plainText := []byte("hello world")
	aad := []byte("context")

	t.Run("SealOpenWithAAD", func(t *testing.T) {
		sealed, err := SealGCM(plainText, key, aad)
		if err != nil {
			t.Fatalf("SealGCM failed: %v", err)
		}
		if len(sealed) != GCMNonceSize+len(plainText)+GCMTagSize {
			t.Errorf("unexpected sealed length %d", len(sealed))
		}

		decrypted, err := OpenGCM(sealed, key, aad)
		if err != nil {
			t.Fatalf("OpenGCM failed: %v", err)
		}

		if !bytes.Equal(plainText, decrypted) {
			t.Errorf("expected %s, got %s", plainText, decrypted)
		}
	})

	t.Run("TamperAAD", func(t *testing.T) {
		sealed, _ := SealGCM(plainText, key, aad)
		_, err := OpenGCM(sealed, key, []byte("wrong context"))
		if err == nil {
			t.Error("expected error with wrong AAD, got nil")
		}
	})

	t.Run("TamperCipherText", func(t *testing.T) {
		sealed, _ := SealGCM(plainText, key, aad)
		sealed[len(sealed)-1] ^= 0xFF
		_, err := OpenGCM(sealed, key, aad)
		if err == nil {
			t.Error("expected error with tampered ciphertext, got nil")
		}
	})

	t.Run("WrongKey", func(t *testing.T) {
		sealed, _ := SealGCM(plainText, key, nil)
		other, _ := NewAESKey()
		if _, err := OpenGCM(sealed, other, nil); err == nil {
			t.Error("expected error with wrong key, got nil")
		}
	})

	t.Run("RejectBadKeySize", func(t *testing.T) {
		_, err := SealGCM(plainText, []byte("too short"), aad)
		if err == nil {
			t.Error("expected error with wrong key size, got nil")
		}
	})

	t.Run("RejectShortInput", func(t *testing.T) {
		_, err := OpenGCM(make([]byte, GCMNonceSize), key, nil)
		if err == nil {
			t.Error("expected error for input shorter than nonce and tag")
		}
	})

	t.Run("FreshNonce", func(t *testing.T) {
		a, _ := SealGCM(plainText, key, nil)
		b, _ := SealGCM(plainText, key, nil)
		if bytes.Equal(a[:GCMNonceSize], b[:GCMNonceSize]) {
			t.Error("nonces should differ between calls")
		}
	})
}

func TestPBKDF2(t *testing.T) {
	params := DefaultPBKDF2Params()
	salt := []byte("0123456789abcdef")

	key, err := DerivePBKDF2Key("correct horse battery staple", salt, params)
	if err != nil {
		t.Fatalf("DerivePBKDF2Key failed: %v", err)
	}
	if len(key) != AESKeySize {
		t.Fatalf("expected key length %d, got %d", AESKeySize, len(key))
	}

	t.Run("Deterministic", func(t *testing.T) {
		again, _ := DerivePBKDF2Key("correct horse battery staple", salt, params)
		if !bytes.Equal(key, again) {
			t.Error("same passphrase and salt should derive the same key")
		}
	})

	t.Run("SaltMatters", func(t *testing.T) {
		other, _ := DerivePBKDF2Key("correct horse battery staple", []byte("fedcba9876543210"), params)
		if bytes.Equal(key, other) {
			t.Error("different salts should derive different keys")
		}
	})

	t.Run("RawPassphraseBytes", func(t *testing.T) {
		ligature, _ := DerivePBKDF2Key("\ufb01le", salt, params)
		plain, _ := DerivePBKDF2Key("file", salt, params)
		if bytes.Equal(ligature, plain) {
			t.Error("compatibility-equivalent passphrases should derive different keys")
		}
		composed, _ := DerivePBKDF2Key("caf\u00e9", salt, params)
		decomposed, _ := DerivePBKDF2Key("cafe\u0301", salt, params)
		if bytes.Equal(composed, decomposed) {
			t.Error("canonically equivalent passphrases should derive different keys")
		}
		want := pbkdf2.Key([]byte("caf\u00e9"), salt, params.Iterations, params.KeyLen, sha256.New)
		if !bytes.Equal(composed, want) {
			t.Error("derivation should run over the raw UTF-8 bytes")
		}
	})

	t.Run("RejectWeakIterations", func(t *testing.T) {
		weak := params
		weak.Iterations = 1000
		if _, err := DerivePBKDF2Key("pw", salt, weak); err == nil {
			t.Error("expected error for iteration count below minimum")
		}
	})

	t.Run("RejectBadKeyLen", func(t *testing.T) {
		bad := params
		bad.KeyLen = 16
		if err := ValidatePBKDF2Params(bad); err == nil {
			t.Error("expected error for 16-byte key length")
		}
	})

	t.Run("RejectEmptySalt", func(t *testing.T) {
		if _, err := DerivePBKDF2Key("pw", nil, params); err == nil {
			t.Error("expected error for empty salt")
		}
	})
}

func TestRandom(t *testing.T) {
	a, err := RandomHex(16)
	if err != nil {
		t.Fatalf("RandomHex failed: %v", err)
	}
	if len(a) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(a))
	}
	if strings.Trim(a, "0123456789abcdef") != "" {
		t.Errorf("expected lowercase hex, got %q", a)
	}
	b, _ := RandomHex(16)
	if a == b {
		t.Error("random tokens should differ")
	}
	if _, err := RandomHex(0); err == nil {
		t.Error("expected error for zero length")
	}
}

func TestBytes(t *testing.T) {
	src := []byte{1, 2, 3}
	cp := CopyBytes(src)
	cp[0] = 9
	if src[0] != 1 {
		t.Error("CopyBytes should not alias the source")
	}

	joined := Concat([]byte{1}, nil, []byte{2, 3})
	if !bytes.Equal(joined, []byte{1, 2, 3}) {
		t.Errorf("Concat returned %v", joined)
	}

	WipeBytes(src)
	if !bytes.Equal(src, []byte{0, 0, 0}) {
		t.Error("WipeBytes should zero the slice")
	}
}

func TestEncoding(t *testing.T) {
	raw := []byte{0xfb, 0xff, 0x00, 0x10}

	std := Base64Encode(raw)
	got, err := Base64Decode(std)
	if err != nil || !bytes.Equal(got, raw) {
		t.Errorf("std base64 round trip failed: %v", err)
	}

	url := Base64URLEncode(raw)
	if strings.ContainsAny(url, "+/=") {
		t.Errorf("url encoding should avoid +, / and padding: %q", url)
	}
	got, err = Base64URLDecode(url)
	if err != nil || !bytes.Equal(got, raw) {
		t.Errorf("url base64 round trip failed: %v", err)
	}

	if HexEncode([]byte{0xab, 0x01}) != "ab01" {
		t.Error("unexpected hex encoding")
	}
}

func TestGenerateSelfSignedCert(t *testing.T) {
	cert, err := GenerateSelfSignedCert()
	if err != nil {
		t.Fatalf("GenerateSelfSignedCert failed: %v", err)
	}
	if len(cert.Certificate) != 1 {
		t.Fatalf("expected one certificate, got %d", len(cert.Certificate))
	}
	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatalf("ParseCertificate failed: %v", err)
	}
	for _, host := range []string{"localhost", "127.0.0.1"} {
		if err := parsed.VerifyHostname(host); err != nil {
			t.Errorf("certificate should cover %s: %v", host, err)
		}
	}
	if !parsed.NotAfter.After(time.Now()) {
		t.Error("certificate already expired")
	}
}

func TestFoldCompatibility(t *testing.T) {
	if got := FoldCompatibility("\uff1cscript\uff1e"); got != "<script>" {
		t.Errorf("FoldCompatibility fullwidth = %q, want %q", got, "<script>")
	}
	if got := FoldCompatibility("\ufb01le"); got != "file" {
		t.Errorf("FoldCompatibility ligature = %q, want %q", got, "file")
	}
}
