package auth

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestDerive_Deterministic(t *testing.T) {
	d := Deriver{Secret: []byte("unit-secret")}
	first, err := d.Derive(DomainTreasury, "config")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	second, err := d.Derive(DomainTreasury, "config")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if first.Address != second.Address || first.Bump != second.Bump {
		t.Fatalf("derivation not stable: %+v vs %+v", first, second)
	}
	if !bytes.Equal(first.Credential, second.Credential) {
		t.Fatalf("credential not stable")
	}
}

func TestDerive_SeparatesDomainsAndSeeds(t *testing.T) {
	d := Deriver{Secret: []byte("unit-secret")}
	treasury, _ := d.Derive(DomainTreasury, "x")
	mintAuth, _ := d.Derive(DomainMintAuthority, "x")
	if treasury.Address == mintAuth.Address {
		t.Fatalf("domains share an address")
	}
	ab, _ := d.Derive(DomainStrategy, "ab", "c")
	a, _ := d.Derive(DomainStrategy, "a", "bc")
	if ab.Address == a.Address {
		t.Fatalf("seed boundaries ambiguous")
	}
}

func TestDerive_CanonicalAddress(t *testing.T) {
	d := Deriver{Secret: []byte("unit-secret")}
	for _, seed := range []string{"one", "two", "three", "four"} {
		got, err := d.Derive(DomainStrategy, "treasury-addr", seed)
		if err != nil {
			t.Fatalf("derive %s: %v", seed, err)
		}
		raw, err := hex.DecodeString(got.Address)
		if err != nil || len(raw) != 32 {
			t.Fatalf("address not 32-byte hex: %q", got.Address)
		}
		if raw[0] == 0 {
			t.Fatalf("address %s not canonical", got.Address)
		}
	}
}

func TestVerifyCredential(t *testing.T) {
	d := Deriver{Secret: []byte("unit-secret")}
	got, err := d.Derive(DomainTreasury, "config")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !VerifyCredential(got.Credential, got.Address) {
		t.Fatalf("own credential rejected")
	}
	other, _ := d.Derive(DomainTreasury, "other")
	if VerifyCredential(other.Credential, got.Address) {
		t.Fatalf("foreign credential accepted")
	}
	if VerifyCredential(nil, got.Address) {
		t.Fatalf("empty credential accepted")
	}
}
