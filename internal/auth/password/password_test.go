package password

import (
	"strings"
	"testing"
)

func TestHashAndVerify(t *testing.T) {
	encoded, err := Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$") {
		t.Fatalf("unexpected hash format: %q", encoded)
	}

	if !Verify("correct horse battery staple", encoded) {
		t.Fatalf("expected password to verify")
	}
	if Verify("wrong password", encoded) {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	cases := []string{
		"",
		"plaintext",
		"$argon2id$v=19$m=65536,t=1$short",
		"$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
	}
	for _, encoded := range cases {
		if Verify("anything", encoded) {
			t.Fatalf("expected malformed hash %q to fail verification", encoded)
		}
	}
}

func TestHashIsSalted(t *testing.T) {
	first, err := Hash("same password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := Hash("same password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct salts to produce distinct hashes")
	}
}
