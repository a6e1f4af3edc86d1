// Package models defines server-side data models persisted in the store.
package models

import "time"

// Account is one pooled credential plus its session token and entitlement
// dates. RegisterDate and ExpireDate use the stored "01/02/06" form and are
// empty when unset.
type Account struct {
	ID           string
	Username     string
	Secret       string
	SessionToken string
	RegisterDate string
	ExpireDate   string
	WarrantyKey  string

	// Version is bumped by every write; conditional writes compare it.
	Version int64

	// LeaseOwner/LeaseExpiresAt guard an account while a request probes it.
	LeaseOwner     string
	LeaseExpiresAt time.Time

	CreatedAt time.Time
}

// Clone returns a copy that shares nothing with a.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// AccountPatch lists the fields an update may change. Nil means "leave as is".
type AccountPatch struct {
	Username     *string
	Secret       *string
	SessionToken *string
	RegisterDate *string
	ExpireDate   *string
}

// Empty reports whether the patch changes nothing.
func (p AccountPatch) Empty() bool {
	return p.Username == nil && p.Secret == nil && p.SessionToken == nil &&
		p.RegisterDate == nil && p.ExpireDate == nil
}

// Apply writes the set fields of p onto a.
func (p AccountPatch) Apply(a *Account) {
	if p.Username != nil {
		a.Username = *p.Username
	}
	if p.Secret != nil {
		a.Secret = *p.Secret
	}
	if p.SessionToken != nil {
		a.SessionToken = *p.SessionToken
	}
	if p.RegisterDate != nil {
		a.RegisterDate = *p.RegisterDate
	}
	if p.ExpireDate != nil {
		a.ExpireDate = *p.ExpireDate
	}
}
