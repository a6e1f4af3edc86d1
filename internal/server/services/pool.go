// Package services contains server-side business logic. This file implements
// PoolManager, which hands out live accounts to consumers and replaces
// accounts whose session has died.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/warrantypool/internal/common"
	"github.com/dmitrijs2005/warrantypool/internal/logging"
	"github.com/dmitrijs2005/warrantypool/internal/server/archive"
	"github.com/dmitrijs2005/warrantypool/internal/server/metrics"
	"github.com/dmitrijs2005/warrantypool/internal/server/models"
	"github.com/dmitrijs2005/warrantypool/internal/server/probe"
	"github.com/dmitrijs2005/warrantypool/internal/server/store"
	"github.com/dmitrijs2005/warrantypool/internal/timex"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type RenewStatus string

const (
	RenewActive    RenewStatus = "active"
	RenewReplaced  RenewStatus = "replaced"
	RenewExhausted RenewStatus = "exhausted"
)

// RenewResult carries the account the consumer should use. Account is nil
// when Status is RenewExhausted.
type RenewResult struct {
	Status  RenewStatus
	Account *models.Account
}

type AssignStatus string

const (
	AssignAssigned  AssignStatus = "assigned"
	AssignExhausted AssignStatus = "exhausted"
)

type AssignResult struct {
	Status  AssignStatus
	Account *models.Account
}

const (
	defaultProbeConcurrency = 4
	defaultLeaseTTL         = probe.DefaultTimeout + 10*time.Second

	reasonDeadSession = "dead session"
)

// PoolConfig tunes PoolManager. Zero values pick defaults.
type PoolConfig struct {
	// ProbeConcurrency is how many candidates are probed at once.
	ProbeConcurrency int
	LeaseTTL         time.Duration
	// FallbackDays is granted when a dying account has no usable expiry.
	FallbackDays int
	// Location decides which calendar day "today" is.
	Location *time.Location
	Now      func() time.Time
}

// PoolManager runs Renew and Assign. It holds no pool state of its own;
// everything lives in the store, and concurrent requests are kept apart by
// per-account leases, version-checked writes and the unique binding index.
type PoolManager struct {
	store    store.Store
	prober   probe.Prober
	archive  archive.Archiver
	registry *AssignmentRegistry
	log      logging.Logger
	cfg      PoolConfig
}

func NewPoolManager(s store.Store, p probe.Prober, a archive.Archiver, log logging.Logger, cfg PoolConfig) *PoolManager {
	if cfg.ProbeConcurrency <= 0 {
		cfg.ProbeConcurrency = defaultProbeConcurrency
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = defaultLeaseTTL
	}
	if cfg.FallbackDays <= 0 {
		cfg.FallbackDays = common.DefaultFallbackDays
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if a == nil {
		a = archive.Nop{}
	}
	if log == nil {
		log = logging.NopLogger{}
	}
	return &PoolManager{
		store:    s,
		prober:   p,
		archive:  a,
		registry: NewAssignmentRegistry(),
		log:      log.With("component", "pool"),
		cfg:      cfg,
	}
}

func (m *PoolManager) now() time.Time {
	return m.cfg.Now().In(m.cfg.Location)
}

func (m *PoolManager) today() time.Time {
	return timex.Today(m.now())
}

// Renew checks the account behind warrantyKey. A live account is returned
// unchanged. A dead one is evicted and replaced by a free live account that
// inherits the remaining entitlement days.
func (m *PoolManager) Renew(ctx context.Context, warrantyKey string) (res *RenewResult, err error) {
	start := time.Now()
	defer func() {
		status := "error"
		if err == nil {
			status = string(res.Status)
		}
		metrics.RecordOperation("renew", status, time.Since(start))
	}()

	warrantyKey = strings.TrimSpace(warrantyKey)
	if warrantyKey == "" {
		return nil, common.NewValidationError("warranty_key", "is required")
	}

	acc, err := m.store.Accounts().GetByWarrantyKey(ctx, warrantyKey)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			m.log.Info(ctx, "renew for unknown warranty key")
			return &RenewResult{Status: RenewExhausted}, nil
		}
		return nil, common.StoreError("get account by warranty key", err)
	}

	owner := uuid.NewString()
	now := m.now()
	if _, err := m.store.Accounts().AcquireLease(ctx, acc.ID, owner, now, now.Add(m.cfg.LeaseTTL)); err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			m.log.Info(ctx, "renew for account deleted meanwhile", "account_id", acc.ID)
			return &RenewResult{Status: RenewExhausted}, nil
		case errors.Is(err, common.ErrLeaseHeld):
			return nil, err
		}
		return nil, common.StoreError("acquire lease", err)
	}

	alive := m.probe(ctx, acc).Alive()
	// A check cut short by the caller says nothing about the session.
	if err := ctx.Err(); err != nil {
		m.release(ctx, acc.ID, owner)
		return nil, err
	}
	if alive {
		m.release(ctx, acc.ID, owner)
		return &RenewResult{Status: RenewActive, Account: acc}, nil
	}

	today := m.today()
	remaining := timex.RemainingDays(acc.ExpireDate, today, m.cfg.FallbackDays)

	consumer, err := m.registry.ConsumerOf(ctx, m.store, acc.ID)
	if err != nil {
		m.release(ctx, acc.ID, owner)
		return nil, common.StoreError("get assignment", err)
	}
	if consumer == "" {
		consumer = warrantyKey
	}

	if err := m.evict(ctx, acc, consumer); err != nil {
		m.release(ctx, acc.ID, owner)
		return nil, err
	}

	replacement, err := m.search(ctx, owner, consumer, timex.FormatStored(today), timex.AddDays(today, remaining))
	if err != nil {
		return nil, err
	}
	if replacement == nil {
		m.log.Warn(ctx, "no replacement available", "evicted_account_id", acc.ID)
		return &RenewResult{Status: RenewExhausted}, nil
	}

	m.log.Info(ctx, "account replaced",
		"evicted_account_id", acc.ID,
		"account_id", replacement.ID,
		"remaining_days", remaining)
	return &RenewResult{Status: RenewReplaced, Account: replacement}, nil
}

// Assign binds consumerName to the first free account, in ID order, whose
// session is live. requestedExpireDate is an ISO date.
func (m *PoolManager) Assign(ctx context.Context, consumerName, requestedExpireDate string) (res *AssignResult, err error) {
	start := time.Now()
	defer func() {
		status := "error"
		if err == nil {
			status = string(res.Status)
		}
		metrics.RecordOperation("assign", status, time.Since(start))
	}()

	consumerName = strings.TrimSpace(consumerName)
	if consumerName == "" {
		return nil, common.NewValidationError("consumer_name", "is required")
	}
	expire, err := timex.ParseISO(requestedExpireDate, m.cfg.Location)
	if err != nil {
		return nil, common.NewValidationError("expire_date", "must be an ISO date (YYYY-MM-DD)")
	}

	acc, err := m.search(ctx, uuid.NewString(), consumerName, timex.FormatStored(m.today()), timex.FormatStored(expire))
	if err != nil {
		return nil, err
	}
	if acc == nil {
		m.log.Warn(ctx, "pool exhausted", "consumer", consumerName)
		return &AssignResult{Status: AssignExhausted}, nil
	}

	m.log.Info(ctx, "account assigned", "consumer", consumerName, "account_id", acc.ID)
	return &AssignResult{Status: AssignAssigned, Account: acc}, nil
}

// search walks the free accounts in ID order and binds the first live one
// to consumer with the given stored dates. Dead candidates met on the way
// are evicted. It returns nil when no candidate qualifies.
func (m *PoolManager) search(ctx context.Context, owner, consumer, registerDate, expireDate string) (*models.Account, error) {
	free, err := m.store.Accounts().ListFree(ctx, m.now())
	if err != nil {
		return nil, common.StoreError("list free accounts", err)
	}

	for i := 0; i < len(free); i += m.cfg.ProbeConcurrency {
		batch := free[i:min(i+m.cfg.ProbeConcurrency, len(free))]
		acc, err := m.searchBatch(ctx, batch, owner, consumer, registerDate, expireDate)
		if err != nil || acc != nil {
			return acc, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (m *PoolManager) searchBatch(ctx context.Context, batch []*models.Account, owner, consumer, registerDate, expireDate string) (*models.Account, error) {
	// held marks candidates this request leased and that still exist.
	held := make([]bool, len(batch))
	defer func() {
		for j, a := range batch {
			if held[j] {
				m.release(ctx, a.ID, owner)
			}
		}
	}()

	now := m.now()
	for j, a := range batch {
		version, err := m.store.Accounts().AcquireLease(ctx, a.ID, owner, now, now.Add(m.cfg.LeaseTTL))
		if err != nil {
			if errors.Is(err, common.ErrLeaseHeld) || errors.Is(err, common.ErrorNotFound) {
				m.log.Debug(ctx, "candidate leased or deleted elsewhere", "account_id", a.ID)
				continue
			}
			return nil, common.StoreError("acquire lease", err)
		}
		a.Version = version
		held[j] = true
	}

	results := make([]probe.Result, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	for j, a := range batch {
		if !held[j] {
			continue
		}
		g.Go(func() error {
			results[j] = m.probe(gctx, a)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for j, a := range batch {
		if !held[j] {
			continue
		}
		if !results[j].Alive() {
			if err := m.evict(ctx, a, ""); err != nil {
				return nil, err
			}
			held[j] = false
			continue
		}
		bound, err := m.bind(ctx, a, consumer, registerDate, expireDate)
		if err != nil {
			return nil, err
		}
		if bound != nil {
			return bound, nil
		}
	}
	return nil, nil
}

// bind writes the dates (conditional on the version seen when leasing) and
// creates the assignment in one transaction. A lost race yields (nil, nil).
func (m *PoolManager) bind(ctx context.Context, a *models.Account, consumer, registerDate, expireDate string) (*models.Account, error) {
	var version int64
	err := m.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		var err error
		version, err = tx.Accounts().Update(ctx, a.ID, models.AccountPatch{
			RegisterDate: &registerDate,
			ExpireDate:   &expireDate,
		}, a.Version)
		if err != nil {
			return err
		}
		_, err = m.registry.Bind(ctx, tx, consumer, a.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrVersionConflict) ||
			errors.Is(err, common.ErrAlreadyBound) ||
			errors.Is(err, common.ErrorNotFound) {
			m.log.Debug(ctx, "candidate lost to a concurrent request", "account_id", a.ID, "error", err)
			return nil, nil
		}
		return nil, common.StoreError("bind account", err)
	}

	out := a.Clone()
	out.RegisterDate = registerDate
	out.ExpireDate = expireDate
	out.Version = version
	return out, nil
}

// evict removes a and its assignments atomically, then archives a snapshot.
// Archive failures are logged only.
func (m *PoolManager) evict(ctx context.Context, a *models.Account, consumer string) error {
	err := m.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		if _, err := m.registry.Unbind(ctx, tx, a.ID); err != nil {
			return err
		}
		if err := tx.Accounts().Delete(ctx, a.ID); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return common.StoreError("evict account", err)
	}

	metrics.RecordEviction()
	m.log.Info(ctx, "account evicted", "account_id", a.ID, "consumer", consumer, "reason", reasonDeadSession)

	snap := archive.SnapshotOf(a, consumer, reasonDeadSession, m.now())
	if err := m.archive.Archive(ctx, snap); err != nil {
		m.log.Error(ctx, "archive eviction failed", "account_id", a.ID, "error", err)
	}
	return nil
}

func (m *PoolManager) probe(ctx context.Context, a *models.Account) probe.Result {
	start := time.Now()
	res := m.prober.Probe(ctx, a.SessionToken)
	metrics.RecordProbe(res.Outcome.String(), time.Since(start))
	if res.Outcome == probe.Failed {
		m.log.Warn(ctx, "probe failed, treating session as dead", "account_id", a.ID, "error", res.Err)
	}
	return res
}

// release drops a lease. Failures are left for the reconciler, which clears
// expired leases.
func (m *PoolManager) release(ctx context.Context, accountID, owner string) {
	if err := m.store.Accounts().ReleaseLease(context.WithoutCancel(ctx), accountID, owner); err != nil {
		m.log.Warn(ctx, "release lease failed", "account_id", accountID, "error", err)
	}
}
