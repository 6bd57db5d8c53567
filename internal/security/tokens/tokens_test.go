package tokens

import (
	"encoding/base64"
	"testing"
)

func TestGenerateOpaqueToken_LengthAndUniqueness(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		tok, err := GenerateOpaqueToken(32)
		if err != nil {
			t.Fatalf("GenerateOpaqueToken err: %v", err)
		}
		raw, err := base64.RawURLEncoding.DecodeString(tok)
		if err != nil {
			t.Fatalf("token no es base64url: %v", err)
		}
		if len(raw) != 32 {
			t.Fatalf("entropía insuficiente: got %d bytes want 32", len(raw))
		}
		if seen[tok] {
			t.Fatalf("token repetido: %q", tok)
		}
		seen[tok] = true
	}
}

func TestSHA256Hex_Deterministic(t *testing.T) {
	t.Parallel()

	a := SHA256Hex("secret")
	b := SHA256Hex("secret")
	if a != b {
		t.Fatalf("hash no determinista: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("hex sha256 debe tener 64 chars, got %d", len(a))
	}
	if SHA256Hex("other") == a {
		t.Fatal("hashes de inputs distintos colisionan")
	}
}

func TestConstantTimeEquals(t *testing.T) {
	t.Parallel()

	if !ConstantTimeEquals("abc", "abc") {
		t.Fatal("expected equal")
	}
	if ConstantTimeEquals("abc", "abd") {
		t.Fatal("expected not equal")
	}
	if ConstantTimeEquals("abc", "ab") {
		t.Fatal("expected not equal for different lengths")
	}
}
