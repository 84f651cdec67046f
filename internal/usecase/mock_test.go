package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"course-marketplace/internal/domain"
	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// ---- In-memory tier repository ----

type memTierRepo struct {
	mu    sync.RWMutex
	store map[string]*model.CourseTier
}

func newMemTierRepo() *memTierRepo {
	return &memTierRepo{store: make(map[string]*model.CourseTier)}
}

func (m *memTierRepo) Save(ctx context.Context, tx repository.Tx, t *model.CourseTier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.store[t.ID] = &cp
	return nil
}

func (m *memTierRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CourseTier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTierRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.CourseTier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.CourseTier, 0, len(m.store))
	for _, t := range m.store {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memTierRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

// ---- In-memory promo repository ----

type memPromoRepo struct {
	mu    sync.Mutex
	store map[string]*model.PromoCode // by ID
}

func newMemPromoRepo() *memPromoRepo {
	return &memPromoRepo{store: make(map[string]*model.PromoCode)}
}

func (m *memPromoRepo) Save(ctx context.Context, tx repository.Tx, p *model.PromoCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *memPromoRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.PromoCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.store {
		if p.Code == code && p.DeletedAt == nil {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPromoRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.PromoCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.PromoCode, 0, len(m.store))
	for _, p := range m.store {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memPromoRepo) ConsumeUse(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok || p.DeletedAt != nil {
		return false, nil
	}
	if p.MaxUses != nil && p.UsedCount >= *p.MaxUses {
		return false, nil
	}
	p.UsedCount++
	return true, nil
}

func (m *memPromoRepo) ReleaseUse(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.store[id]; ok && p.UsedCount > 0 {
		p.UsedCount--
	}
	return nil
}

func (m *memPromoRepo) SoftDelete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.store[id]; ok && p.DeletedAt == nil {
		now := time.Now()
		p.DeletedAt = &now
	}
	return nil
}

func (m *memPromoRepo) usedCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.store[id]; ok {
		return p.UsedCount
	}
	return 0
}

// ---- In-memory purchase repository ----

// memPurchaseRepo mimics the database semantics the use cases rely on: the
// partial unique index on active (user, tier) pairs, the status
// compare-and-set, and the write-once proof update.
type memPurchaseRepo struct {
	mu    sync.Mutex
	store map[string]*model.Purchase
}

func newMemPurchaseRepo() *memPurchaseRepo {
	return &memPurchaseRepo{store: make(map[string]*model.Purchase)}
}

func (m *memPurchaseRepo) Save(ctx context.Context, tx repository.Tx, p *model.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.store[p.ID]; !exists && p.Active() {
		for _, other := range m.store {
			if other.UserID == p.UserID && other.TierID == p.TierID && other.Active() {
				return domain.ErrAlreadyExists // unique index violation
			}
		}
	}
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *memPurchaseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPurchaseRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Purchase
	for _, p := range m.store {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memPurchaseRepo) FindActiveByUserAndTier(ctx context.Context, tx repository.Tx, userID, tierID string) (*model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.store {
		if p.UserID == userID && p.TierID == tierID && p.Active() {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPurchaseRepo) ExistsConfirmed(ctx context.Context, tx repository.Tx, userID, tierID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.store {
		if p.UserID == userID && p.TierID == tierID && p.Status == model.PurchaseStatusConfirmed {
			return true, nil
		}
	}
	return false, nil
}

func (m *memPurchaseRepo) CountByUserAndPromo(ctx context.Context, tx repository.Tx, userID, code string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.store {
		if p.UserID == userID && p.PromoCode != nil && *p.PromoCode == code && p.Status != model.PurchaseStatusFailed {
			n++
		}
	}
	return n, nil
}

func (m *memPurchaseRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.PurchaseStatus, confirmedAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok || p.Status != model.PurchaseStatusPending {
		return false, nil
	}
	p.Status = status
	if confirmedAt != nil {
		p.ConfirmedAt = confirmedAt
	}
	return true, nil
}

// setExpiry rewrites a stored purchase's deadline, for sweep tests.
func (m *memPurchaseRepo) setExpiry(id string, at *time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.store[id]; ok {
		p.ExpiresAt = at
	}
}

func (m *memPurchaseRepo) ExpireIfUnproven(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok || p.Status != model.PurchaseStatusPending || p.TxHash != nil || p.FromPhone != nil {
		return false, nil
	}
	p.Status = model.PurchaseStatusFailed
	return true, nil
}

func (m *memPurchaseRepo) SetProofIfAbsent(ctx context.Context, tx repository.Tx, id string, txHash, fromPhone *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok || p.Status != model.PurchaseStatusPending || p.TxHash != nil || p.FromPhone != nil {
		return false, nil
	}
	if txHash != nil {
		cp := *txHash
		p.TxHash = &cp
	}
	if fromPhone != nil {
		cp := *fromPhone
		p.FromPhone = &cp
	}
	return true, nil
}

func (m *memPurchaseRepo) ListPendingExpired(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Purchase
	for _, p := range m.store {
		if p.Status == model.PurchaseStatusPending && p.TxHash == nil && p.FromPhone == nil && p.ExpiresAt != nil && p.ExpiresAt.Before(now) {
			cp := *p
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memPurchaseRepo) SumConfirmedByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, p := range m.store {
		if p.Status == model.PurchaseStatusConfirmed {
			sum += p.FinalPriceCents
		}
	}
	return sum, nil
}

func (m *memPurchaseRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.PurchaseStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[model.PurchaseStatus]int)
	for _, p := range m.store {
		out[p.Status]++
	}
	return out, nil
}

// ---- In-memory referral credit repository ----

type memReferralRepo struct {
	mu    sync.Mutex
	store []*model.ReferralCredit
}

func newMemReferralRepo() *memReferralRepo { return &memReferralRepo{} }

func (m *memReferralRepo) Save(ctx context.Context, tx repository.Tx, c *model.ReferralCredit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.store = append(m.store, &cp)
	return nil
}

func (m *memReferralRepo) ListByCode(ctx context.Context, tx repository.Tx, code string) ([]*model.ReferralCredit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ReferralCredit
	for _, c := range m.store {
		if c.Code == code {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Mock transaction manager ----

type MockTxManager struct {
	mu         sync.Mutex
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx serializes callbacks so the mock repositories behave like the real
// transaction path (checkout's advisory lock serializes conflicting writes).
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, repository.NoTX)
}

// ---- In-memory Locker (implements redis.Locker port) ----

type MockLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if tok, ok := l.held[key]; ok && tok != "" {
		return "", domain.ErrCheckoutLocked
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

// ---- shared fixtures ----

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func seedTier(repo *memTierRepo, id string, usdCents, lydDirhams int64) *model.CourseTier {
	t := &model.CourseTier{
		ID:              id,
		Name:            id,
		PriceUSDCents:   usdCents,
		PriceLYDDirhams: lydDirhams,
		CreatedAt:       time.Now(),
	}
	_ = repo.Save(context.Background(), nil, t)
	return t
}
