package application

import "io"

// SetRandReader replaces the salt source of h.
func SetRandReader(h *PasswordHasher, r io.Reader) {
	h.randReader = r
}

// CachedPlaceholderHash returns the placeholder hash computed so far, or "".
func CachedPlaceholderHash(a *Authenticator) string {
	a.dummyMu.Lock()
	defer a.dummyMu.Unlock()
	return a.dummyHash
}
