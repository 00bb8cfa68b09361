package models

// SessionState tags the Session variant. Switches over it should be
// exhaustive; there is no third state.
type SessionState int

const (
	// SessionNotAvailable means the account is not synchronized or no
	// address is selected.
	SessionNotAvailable SessionState = iota

	// SessionActive means both an account and a selected address exist.
	SessionActive
)

// Session is the derived combination of the current account and the
// selected address. It is recomputed on every change of either input and
// never persisted.
type Session struct {
	State   SessionState
	Account Account
	Address Address
}

// SessionNotAvailableValue returns the empty variant.
func SessionNotAvailableValue() Session {
	return Session{State: SessionNotAvailable}
}

// SessionActiveValue returns the active variant carrying both inputs.
func SessionActiveValue(account Account, address Address) Session {
	return Session{State: SessionActive, Account: account, Address: address}
}
