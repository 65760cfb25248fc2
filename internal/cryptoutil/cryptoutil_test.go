package cryptoutil

import "testing"

func TestGenerateKeyRoundTripsThroughHex(t *testing.T) {
	priv, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	hexKey := PrivateKeyHex(priv)
	if len(hexKey) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(hexKey))
	}
	got, err := PrivateKeyFromHex(hexKey)
	if err != nil {
		t.Fatalf("PrivateKeyFromHex: %v", err)
	}
	if PrivateKeyHex(got) != hexKey {
		t.Fatalf("round trip mismatch")
	}
}

func TestPublicKeyHexShape(t *testing.T) {
	priv, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	addr := PublicKeyHex(priv)
	if len(addr) != AddressLen {
		t.Fatalf("expected %d char address, got %d", AddressLen, len(addr))
	}
	if addr[:2] != "04" {
		t.Fatalf("expected 04 prefix, got %s", addr[:2])
	}
	if !IsValidAddress(addr) {
		t.Fatalf("derived address failed IsValidAddress")
	}
}

func TestIsValidAddressRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"04ab",
		"05" + "00" /* wrong prefix, too short */,
	}
	for _, c := range cases {
		if IsValidAddress(c) {
			t.Errorf("IsValidAddress(%q) = true, want false", c)
		}
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	priv, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	addr := PublicKeyHex(priv)
	var hash [32]byte
	copy(hash[:], []byte("0123456789abcdef0123456789abcdef"))

	sig := Sign(priv, hash)
	ok, err := Verify(addr, sig, hash)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected signature to verify")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	priv, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	other, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	var hash [32]byte
	copy(hash[:], []byte("the quick brown fox jumps over!"))

	sig := Sign(priv, hash)
	ok, err := Verify(PublicKeyHex(other), sig, hash)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatalf("expected signature from a different key to fail verification")
	}
}

func TestSha256HexIsDeterministic(t *testing.T) {
	a := Sha256Hex([]byte("nanochain"))
	b := Sha256Hex([]byte("nanochain"))
	if a != b {
		t.Fatalf("expected deterministic hash, got %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}
