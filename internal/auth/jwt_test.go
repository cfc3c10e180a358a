package auth

import (
	"testing"
	"time"
)

func TestJWT_SignVerify(t *testing.T) {
	j := JWT{Secret: []byte("unit-secret"), Issuer: "jetson", TokenTTL: time.Hour}
	token, expiresAt, err := j.Sign(Claims{Address: "addr-1", Role: "admin"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expiry in the past: %s", expiresAt)
	}
	claims, err := j.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Address != "addr-1" || claims.Role != "admin" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
	if claims.Issuer != "jetson" {
		t.Fatalf("issuer=%s", claims.Issuer)
	}
}

func TestJWT_RejectsForeignSecret(t *testing.T) {
	a := JWT{Secret: []byte("secret-a"), Issuer: "jetson", TokenTTL: time.Hour}
	b := JWT{Secret: []byte("secret-b"), Issuer: "jetson", TokenTTL: time.Hour}
	token, _, err := a.Sign(Claims{Address: "addr-1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := b.Verify(token); err == nil {
		t.Fatalf("token signed with other secret verified")
	}
}
