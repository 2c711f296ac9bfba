// Package cache decorates a registration store with a Redis read-through
// cache on the idempotency-key lookup path. Replayed submissions hit the same
// key repeatedly, so the pre-check rarely needs the database once a row is
// cached.
//
// The cache is never authoritative: a miss or a Redis failure falls through to
// the inner store, and the database's unique constraint remains the backstop
// for the race-recovery path. Redis errors are logged and swallowed.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"examreg/internal/registration/models"
	"examreg/internal/registration/store"
	id "examreg/pkg/domain"
)

// DefaultTTL bounds staleness for cached rows. Stale entries only ever make
// the pre-check report an existing row that has since changed, which the
// service resolves by re-reading, never by writing.
const DefaultTTL = 5 * time.Minute

const keyPrefix = "examreg:reg:key:"

// Store wraps an inner registration store with a Redis lookaside cache.
type Store struct {
	inner  store.Store
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// New constructs the caching decorator. The inner store carries all
// correctness guarantees; client may not be nil.
func New(inner store.Store, client *redis.Client, logger *slog.Logger) *Store {
	return &Store{inner: inner, client: client, logger: logger, ttl: DefaultTTL}
}

func (s *Store) Insert(ctx context.Context, reg *models.Registration, entry *models.AuditEntry) error {
	if err := s.inner.Insert(ctx, reg, entry); err != nil {
		return err
	}
	s.put(ctx, reg)
	return nil
}

func (s *Store) Update(ctx context.Context, reg *models.Registration, entry *models.AuditEntry) error {
	if err := s.inner.Update(ctx, reg, entry); err != nil {
		return err
	}
	s.put(ctx, reg)
	return nil
}

func (s *Store) FindByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	return s.inner.FindByID(ctx, regID)
}

func (s *Store) FindByKey(ctx context.Context, key string) (*models.Registration, error) {
	if reg := s.get(ctx, key); reg != nil {
		return reg, nil
	}
	reg, err := s.inner.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	s.put(ctx, reg)
	return reg, nil
}

func (s *Store) List(ctx context.Context) ([]*models.Registration, error) {
	return s.inner.List(ctx)
}

func (s *Store) Exists(ctx context.Context, regID id.RegistrationID) (bool, error) {
	return s.inner.Exists(ctx, regID)
}

func (s *Store) Delete(ctx context.Context, regID id.RegistrationID) error {
	// Look up the row first so the cached key can be dropped with it.
	reg, err := s.inner.FindByID(ctx, regID)
	if err != nil {
		return err
	}
	if err := s.inner.Delete(ctx, regID); err != nil {
		return err
	}
	if err := s.client.Del(ctx, keyPrefix+reg.IdempotencyKey).Err(); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate cached registration",
			"idempotency_key", reg.IdempotencyKey,
			"error", err.Error(),
		)
	}
	return nil
}

func (s *Store) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	return s.inner.AppendAudit(ctx, entry)
}

func (s *Store) AuditsByRegistration(ctx context.Context, regID id.RegistrationID) ([]*models.AuditEntry, error) {
	return s.inner.AuditsByRegistration(ctx, regID)
}

func (s *Store) get(ctx context.Context, key string) *models.Registration {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.WarnContext(ctx, "registration cache read failed",
				"idempotency_key", key,
				"error", err.Error(),
			)
		}
		return nil
	}
	var reg models.Registration
	if err := json.Unmarshal(raw, &reg); err != nil {
		s.logger.WarnContext(ctx, "registration cache entry corrupt",
			"idempotency_key", key,
			"error", err.Error(),
		)
		return nil
	}
	return &reg
}

func (s *Store) put(ctx context.Context, reg *models.Registration) {
	raw, err := json.Marshal(reg)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, keyPrefix+reg.IdempotencyKey, raw, s.ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "registration cache write failed",
			"idempotency_key", reg.IdempotencyKey,
			"error", err.Error(),
		)
	}
}
