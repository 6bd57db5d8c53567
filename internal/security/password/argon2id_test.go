package password

import (
	"strings"
	"testing"
)

func TestHashVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	phc, err := Hash(Default, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash err: %v", err)
	}
	if !strings.HasPrefix(phc, "$argon2id$v=19$") {
		t.Fatalf("unexpected PHC prefix: %q", phc)
	}
	if !Verify("correct horse battery staple", phc) {
		t.Fatal("expected verify ok")
	}
	if Verify("wrong password", phc) {
		t.Fatal("expected verify fail")
	}
}

func TestHash_EmptyPassword(t *testing.T) {
	t.Parallel()

	if _, err := Hash(Default, ""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestVerify_MalformedPHC(t *testing.T) {
	t.Parallel()

	for _, phc := range []string{
		"",
		"$argon2id$v=19$m=65536,t=3,p=1$nosalt",
		"$bcrypt$whatever",
		"$argon2id$v=18$m=65536,t=3,p=1$c2FsdA$ZGsK",
	} {
		if Verify("x", phc) {
			t.Fatalf("expected fail for %q", phc)
		}
	}
}
