package auth

import "fmt"

// Keyset holds versioned HMAC signing secrets. The active key signs new
// credentials; verification accepts any key still in the set, so rotation
// does not invalidate outstanding sessions at once.
type Keyset struct {
	keys   map[string][]byte
	active string
}

// NewKeyset validates and builds a keyset from kid→secret pairs.
func NewKeyset(keys map[string]string, activeKID string) (*Keyset, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("keyset: no keys")
	}
	byID := make(map[string][]byte, len(keys))
	for kid, secret := range keys {
		if kid == "" || secret == "" {
			return nil, fmt.Errorf("keyset: empty kid or secret")
		}
		byID[kid] = []byte(secret)
	}
	if _, ok := byID[activeKID]; !ok {
		return nil, fmt.Errorf("keyset: active kid %q not in set", activeKID)
	}
	return &Keyset{keys: byID, active: activeKID}, nil
}

// Active returns the signing key used for new credentials.
func (k *Keyset) Active() (string, []byte) {
	return k.active, k.keys[k.active]
}

// Lookup resolves a key id from a credential header.
func (k *Keyset) Lookup(kid string) ([]byte, bool) {
	secret, ok := k.keys[kid]
	return secret, ok
}
