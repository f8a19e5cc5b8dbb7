package idgen

import "testing"

func TestGenerateTaskIDShape(t *testing.T) {
	id := GenerateTaskID("Do the thing", 1700000000, 0)
	if !ValidID(id) {
		t.Fatalf("generated id %q is not a valid task id", id)
	}
}

func TestGenerateTaskIDDeterministic(t *testing.T) {
	a := GenerateTaskID("Do the thing", 1700000000, 0)
	b := GenerateTaskID("Do the thing", 1700000000, 0)
	if a != b {
		t.Fatalf("same (title, created_at, nonce) produced different ids: %q vs %q", a, b)
	}
}

func TestGenerateTaskIDVariesByNonce(t *testing.T) {
	a := GenerateTaskID("Do the thing", 1700000000, 0)
	b := GenerateTaskID("Do the thing", 1700000000, 1)
	if a == b {
		t.Fatalf("expected nonce to change the derived id")
	}
}

func TestGenerateTaskIDVariesByInput(t *testing.T) {
	a := GenerateTaskID("Do the thing", 1700000000, 0)
	b := GenerateTaskID("Do a different thing", 1700000000, 0)
	c := GenerateTaskID("Do the thing", 1700000001, 0)
	if a == b || a == c || b == c {
		t.Fatalf("expected distinct ids for distinct inputs: %q %q %q", a, b, c)
	}
}

func TestValidID(t *testing.T) {
	cases := map[string]bool{
		"a1b2c3d4": true,
		"00000000": true,
		"A1B2C3D4": false, // uppercase not allowed
		"a1b2c3d":  false, // too short
		"a1b2c3d45": false, // too long
		"ghijklmn": false, // not hex
	}
	for id, want := range cases {
		if got := ValidID(id); got != want {
			t.Errorf("ValidID(%q) = %v, want %v", id, got, want)
		}
	}
}
