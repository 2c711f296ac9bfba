//go:build integration

package cache

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"examreg/internal/registration/models"
	"examreg/internal/registration/store"
	id "examreg/pkg/domain"
	"examreg/pkg/platform/sentinel"
	"examreg/pkg/testutil/containers"
)

// countingStore counts idempotency-key lookups hitting the inner store so
// tests can tell a cache hit from a read-through.
type countingStore struct {
	store.Store
	keyLookups atomic.Int64
}

func (c *countingStore) FindByKey(ctx context.Context, key string) (*models.Registration, error) {
	c.keyLookups.Add(1)
	return c.Store.FindByKey(ctx, key)
}

type CacheSuite struct {
	suite.Suite
	inner *countingStore
	cache *Store
	ctx   context.Context
}

func (s *CacheSuite) SetupTest() {
	s.ctx = context.Background()
	rc := containers.GetRedis(s.T())
	s.Require().NoError(rc.Client.FlushAll(s.ctx).Err())

	s.inner = &countingStore{Store: store.NewInMemory()}
	s.cache = New(s.inner, rc.Client, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) newRegistration(key string) *models.Registration {
	return &models.Registration{
		ID:             id.NewRegistrationID(),
		IdempotencyKey: key,
		Name:           "Jo Lee",
		Email:          "jo@x.com",
		School:         "Riverside High",
		Grade:          "11",
		Section:        "Mathematics",
		PaymentStatus:  models.PaymentPending,
		CreatedAt:      time.Now().UTC().Truncate(time.Millisecond),
		UpdatedBy:      "System",
	}
}

// TestInsertWarmsCache verifies a fresh insert is served from Redis on the
// next key lookup without touching the inner store.
func (s *CacheSuite) TestInsertWarmsCache() {
	reg := s.newRegistration("warm")
	s.Require().NoError(s.cache.Insert(s.ctx, reg, nil))

	found, err := s.cache.FindByKey(s.ctx, "warm")
	s.Require().NoError(err)
	s.Equal(reg.ID, found.ID)
	s.Equal(reg.Name, found.Name)
	s.Equal(int64(0), s.inner.keyLookups.Load(), "lookup must be served from cache")
}

// TestReadThrough verifies a cold key falls through once and is cached after.
func (s *CacheSuite) TestReadThrough() {
	reg := s.newRegistration("cold")
	// Seed the inner store directly so Redis starts cold.
	s.Require().NoError(s.inner.Insert(s.ctx, reg, nil))

	for i := 0; i < 3; i++ {
		found, err := s.cache.FindByKey(s.ctx, "cold")
		s.Require().NoError(err)
		s.Equal(reg.ID, found.ID)
	}
	s.Equal(int64(1), s.inner.keyLookups.Load(), "only the first lookup reaches the store")
}

// TestMissFallsThrough verifies unknown keys keep returning ErrNotFound and
// are never cached.
func (s *CacheSuite) TestMissFallsThrough() {
	_, err := s.cache.FindByKey(s.ctx, "missing")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.cache.FindByKey(s.ctx, "missing")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	s.Equal(int64(2), s.inner.keyLookups.Load())
}

// TestUpdateRefreshesCache verifies updates overwrite the cached row.
func (s *CacheSuite) TestUpdateRefreshesCache() {
	reg := s.newRegistration("refresh")
	s.Require().NoError(s.cache.Insert(s.ctx, reg, nil))

	now := time.Now().UTC().Truncate(time.Millisecond)
	reg.PaymentStatus = models.PaymentPaid
	reg.UpdatedAt = &now
	s.Require().NoError(s.cache.Update(s.ctx, reg, nil))

	found, err := s.cache.FindByKey(s.ctx, "refresh")
	s.Require().NoError(err)
	s.Equal(models.PaymentPaid, found.PaymentStatus)
	s.Equal(int64(0), s.inner.keyLookups.Load())
}

// TestDeleteInvalidates verifies deletion drops the cached key so a stale row
// cannot resurface.
func (s *CacheSuite) TestDeleteInvalidates() {
	reg := s.newRegistration("gone")
	s.Require().NoError(s.cache.Insert(s.ctx, reg, nil))
	s.Require().NoError(s.cache.Delete(s.ctx, reg.ID))

	_, err := s.cache.FindByKey(s.ctx, "gone")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
