// Package models defines client-side data models for the addrhub CLI:
// the account/address identity records and the derived session view.
package models

import "time"

// Address is a user-selectable handle under an Account. Content is always
// scoped to one address.
type Address struct {
	// Handle is the address name, e.g. "alice".
	Handle string `json:"handle"`

	// CreatedAt is the address registration time in UTC.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is the end of the current registration period.
	ExpiresAt time.Time `json:"expires_at"`
}

// Account is the identity record for the logged-in user. It is replaced
// wholesale on every successful account fetch and cleared on logout.
type Account struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	Addresses []Address `json:"addresses"`
}

// HasAddress reports whether handle belongs to this account.
func (a Account) HasAddress(handle string) bool {
	for _, addr := range a.Addresses {
		if addr.Handle == handle {
			return true
		}
	}
	return false
}

// AccountState is the snapshot emitted on the account stream. Synchronized
// is false until the first successful account fetch and after ClearSession.
type AccountState struct {
	Synchronized bool
	Account      Account
}

// AddressState is the snapshot emitted on the selected-address stream.
type AddressState struct {
	Set     bool
	Address Address
}
