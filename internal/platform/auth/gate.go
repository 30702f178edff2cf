package auth

import (
	"crypto/sha256"
	"crypto/subtle"
)

// Gate authorizes privileged state transitions (publish, approve/reject,
// slot reset) against a single configured shared secret.
type Gate struct {
	digest     [sha256.Size]byte
	configured bool
}

func NewGate(secret string) *Gate {
	g := &Gate{configured: secret != ""}
	if g.configured {
		g.digest = sha256.Sum256([]byte(secret))
	}
	return g
}

// Authorize compares the supplied secret in constant time. Hashing both
// sides first keeps the comparison length-independent. An unconfigured
// gate authorizes nothing.
func (g *Gate) Authorize(supplied string) bool {
	if !g.configured {
		return false
	}
	d := sha256.Sum256([]byte(supplied))
	return subtle.ConstantTimeCompare(g.digest[:], d[:]) == 1
}
