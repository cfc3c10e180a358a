package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Derivation domains. Config and strategy records store which domain an
// address came from implicitly through their fields; the domain string keeps
// the credential spaces disjoint.
const (
	DomainTreasury      = "treasury"
	DomainMintAuthority = "mint-authority"
	DomainStrategy      = "strategy"
	DomainTreasuryStats = "treasury-stats"
)

// Derived is a service-controlled account: the address is public, the
// credential is the capability that authorizes acting as that address.
type Derived struct {
	Address    string
	Credential []byte
	Bump       uint8
}

// Deriver mints deterministic addresses plus the credentials proving
// authority over them:
//
//	credential = HMAC-SHA256(secret, domain NUL seed... bump)
//	address    = hex(SHA-256(credential))
//
// The bump is searched downward from 255 until the address is canonical
// (non-zero leading byte), so a (domain, seeds) pair always lands on the
// same bump and the search result is worth persisting.
type Deriver struct {
	Secret []byte
}

var ErrNoCanonicalBump = errors.New("auth: no canonical bump for seeds")

func (d Deriver) Derive(domain string, seeds ...string) (Derived, error) {
	for b := 255; b >= 0; b-- {
		mac := hmac.New(sha256.New, d.Secret)
		mac.Write([]byte(domain))
		for _, s := range seeds {
			mac.Write([]byte{0})
			mac.Write([]byte(s))
		}
		mac.Write([]byte{byte(b)})
		cred := mac.Sum(nil)
		sum := sha256.Sum256(cred)
		if sum[0] == 0 {
			continue
		}
		return Derived{
			Address:    hex.EncodeToString(sum[:]),
			Credential: cred,
			Bump:       uint8(b),
		}, nil
	}
	return Derived{}, ErrNoCanonicalBump
}

// AddressOf maps a credential back to its address form.
func AddressOf(credential []byte) string {
	sum := sha256.Sum256(credential)
	return hex.EncodeToString(sum[:])
}

// VerifyCredential reports whether credential proves authority over address.
func VerifyCredential(credential []byte, address string) bool {
	if len(credential) == 0 || address == "" {
		return false
	}
	return hmac.Equal([]byte(AddressOf(credential)), []byte(address))
}
