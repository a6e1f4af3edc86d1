// Package poolpb defines the PoolService wire contract shared by the gRPC
// server, the HTTP API and the admin CLI. Messages travel as
// google.protobuf.Struct on gRPC and as plain JSON over HTTP; the Go types
// below give both a single shape.
package poolpb

import (
	"github.com/dmitrijs2005/warrantypool/internal/server/models"
	"github.com/dmitrijs2005/warrantypool/internal/timex"
)

// RedactedSecret replaces secrets in administrative listings.
const RedactedSecret = "********"

// Account is the external view of a pooled account. Dates are ISO
// (YYYY-MM-DD). The session token is never sent back.
type Account struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Secret       string `json:"secret,omitempty"`
	RegisterDate string `json:"register_date,omitempty"`
	ExpireDate   string `json:"expire_date,omitempty"`
	WarrantyKey  string `json:"warranty_key,omitempty"`
}

// NewAccount maps a stored account to its external view. The secret is
// included verbatim only when withSecret is set.
func NewAccount(a *models.Account, withSecret bool) *Account {
	if a == nil {
		return nil
	}
	out := &Account{
		ID:           a.ID,
		Username:     a.Username,
		RegisterDate: isoDate(a.RegisterDate),
		ExpireDate:   isoDate(a.ExpireDate),
		WarrantyKey:  a.WarrantyKey,
	}
	if withSecret {
		out.Secret = a.Secret
	} else if a.Secret != "" {
		out.Secret = RedactedSecret
	}
	return out
}

// isoDate converts a stored date for display; values that do not parse are
// passed through untouched.
func isoDate(stored string) string {
	if stored == "" {
		return ""
	}
	iso, err := timex.StoredToISO(stored)
	if err != nil {
		return stored
	}
	return iso
}

type UploadRequest struct {
	Username     string `json:"username"`
	Secret       string `json:"secret"`
	SessionToken string `json:"session_token"`
	RegisterDate string `json:"register_date,omitempty"`
	ExpireDate   string `json:"expire_date,omitempty"`
}

type UploadResponse struct {
	AccountID   string `json:"account_id"`
	WarrantyKey string `json:"warranty_key"`
}

type RenewRequest struct {
	WarrantyKey string `json:"warranty_key"`
}

// RenewResponse.Status is "active", "replaced" or "exhausted".
type RenewResponse struct {
	Status  string   `json:"status"`
	Account *Account `json:"account,omitempty"`
}

type AssignRequest struct {
	ConsumerName string `json:"consumer_name"`
	ExpireDate   string `json:"expire_date"`
}

// AssignResponse.Status is "assigned" or "exhausted".
type AssignResponse struct {
	Status  string   `json:"status"`
	Account *Account `json:"account,omitempty"`
}

type AccountRequest struct {
	AccountID string `json:"account_id"`
}

// UpdateRequest changes only the fields that are present.
type UpdateRequest struct {
	AccountID    string  `json:"account_id"`
	Username     *string `json:"username,omitempty"`
	Secret       *string `json:"secret,omitempty"`
	SessionToken *string `json:"session_token,omitempty"`
	RegisterDate *string `json:"register_date,omitempty"`
	ExpireDate   *string `json:"expire_date,omitempty"`
}

// Patch converts the request into a store patch.
func (r *UpdateRequest) Patch() models.AccountPatch {
	return models.AccountPatch{
		Username:     r.Username,
		Secret:       r.Secret,
		SessionToken: r.SessionToken,
		RegisterDate: r.RegisterDate,
		ExpireDate:   r.ExpireDate,
	}
}

type AccountResponse struct {
	Account *Account `json:"account"`
}

type ListResponse struct {
	Accounts []*Account `json:"accounts"`
}

type PingResponse struct {
	Status string `json:"status"`
}

type Empty struct{}
