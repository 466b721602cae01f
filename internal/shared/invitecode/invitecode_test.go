package invitecode

import (
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ids := []string{
		"a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6",
		"admin-001",
		"x",
	}
	for _, id := range ids {
		code := Encode(id)
		if code == id {
			t.Errorf("Encode(%q) should not be the identity", id)
		}
		got, err := Decode(code)
		if err != nil {
			t.Fatalf("Decode(%q): %v", code, err)
		}
		if got != id {
			t.Errorf("round trip: got %q, want %q", got, id)
		}
	}
}

func TestDecodeInvalid(t *testing.T) {
	for _, token := range []string{"", "!!!", "0189"} {
		if _, err := Decode(token); err == nil {
			t.Errorf("Decode(%q) should fail", token)
		}
	}
}

func TestEncodeIsStable(t *testing.T) {
	id := "admin-42"
	if Encode(id) != Encode(id) {
		t.Error("Encode should be deterministic")
	}
}
