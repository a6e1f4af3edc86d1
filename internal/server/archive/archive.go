// Package archive stores a JSON snapshot of every evicted account so that
// operators can audit what the pool threw away.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/warrantypool/internal/server/models"
)

// Snapshot is the archived view of an evicted account. Secrets and session
// tokens are never written.
type Snapshot struct {
	AccountID    string    `json:"account_id"`
	Username     string    `json:"username"`
	WarrantyKey  string    `json:"warranty_key"`
	RegisterDate string    `json:"register_date,omitempty"`
	ExpireDate   string    `json:"expire_date,omitempty"`
	ConsumerName string    `json:"consumer_name,omitempty"`
	Reason       string    `json:"reason"`
	EvictedAt    time.Time `json:"evicted_at"`
}

// SnapshotOf builds the archived view of a.
func SnapshotOf(a *models.Account, consumerName, reason string, at time.Time) Snapshot {
	return Snapshot{
		AccountID:    a.ID,
		Username:     a.Username,
		WarrantyKey:  a.WarrantyKey,
		RegisterDate: a.RegisterDate,
		ExpireDate:   a.ExpireDate,
		ConsumerName: consumerName,
		Reason:       reason,
		EvictedAt:    at.UTC(),
	}
}

// Key is the object key of a snapshot: evictions/YYYY/MM/DD/<id>.json.
func Key(s Snapshot) string {
	d := s.EvictedAt.UTC()
	return fmt.Sprintf("evictions/%04d/%02d/%02d/%s.json", d.Year(), d.Month(), d.Day(), s.AccountID)
}

type Archiver interface {
	Archive(ctx context.Context, s Snapshot) error
}

// Nop discards snapshots. It is used when no bucket is configured.
type Nop struct{}

func (Nop) Archive(context.Context, Snapshot) error { return nil }
