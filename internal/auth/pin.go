package auth

import "golang.org/x/crypto/bcrypt"

// PinHasher is the narrow capability for one-way PIN digests. Verify must not
// leak whether the digest came from a real identity.
type PinHasher interface {
	Hash(pin string) (string, error)
	Verify(pin, digest string) bool
}

type bcryptHasher struct {
	cost int
}

// NewBcryptPinHasher returns the bcrypt-backed hasher.
func NewBcryptPinHasher(cost int) PinHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (h *bcryptHasher) Hash(pin string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(pin), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

func (h *bcryptHasher) Verify(pin, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(pin)) == nil
}
