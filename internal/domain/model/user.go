// Package model holds the domain types shared by services and adapters.
package model

// User is an administrative account. PasswordHash holds an encoded argon2id
// hash and is never exposed outside the store and the authenticator.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
}
