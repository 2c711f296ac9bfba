package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"examreg/internal/registration/models"
	id "examreg/pkg/domain"
	"examreg/pkg/platform/sentinel"
)

// InMemory keeps registrations in process memory. It mirrors the relational
// semantics the service relies on (key uniqueness, cascade delete, atomic
// row+audit commit) so unit tests exercise the same contract as Postgres.
type InMemory struct {
	mu     sync.RWMutex
	regs   map[id.RegistrationID]models.Registration
	byKey  map[string]id.RegistrationID
	audits map[id.RegistrationID][]models.AuditEntry
}

func NewInMemory() *InMemory {
	return &InMemory{
		regs:   make(map[id.RegistrationID]models.Registration),
		byKey:  make(map[string]id.RegistrationID),
		audits: make(map[id.RegistrationID][]models.AuditEntry),
	}
}

func (s *InMemory) Insert(_ context.Context, reg *models.Registration, entry *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byKey[reg.IdempotencyKey]; taken {
		return fmt.Errorf("insert registration %s: %w", reg.IdempotencyKey, sentinel.ErrAlreadyUsed)
	}
	s.regs[reg.ID] = *reg
	s.byKey[reg.IdempotencyKey] = reg.ID
	if entry != nil {
		s.audits[reg.ID] = append(s.audits[reg.ID], *entry)
	}
	return nil
}

func (s *InMemory) Update(_ context.Context, reg *models.Registration, entry *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.regs[reg.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.regs[reg.ID] = *reg
	if entry != nil {
		s.audits[reg.ID] = append(s.audits[reg.ID], *entry)
	}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, regID id.RegistrationID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.regs[regID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &reg, nil
}

func (s *InMemory) FindByKey(_ context.Context, key string) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	regID, ok := s.byKey[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	reg := s.regs[regID]
	return &reg, nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Registration, 0, len(s.regs))
	for _, reg := range s.regs {
		r := reg
		out = append(out, &r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) Exists(_ context.Context, regID id.RegistrationID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.regs[regID]
	return ok, nil
}

func (s *InMemory) Delete(_ context.Context, regID id.RegistrationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.regs[regID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.regs, regID)
	delete(s.byKey, reg.IdempotencyKey)
	delete(s.audits, regID)
	return nil
}

func (s *InMemory) AppendAudit(_ context.Context, entry *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.regs[entry.RegistrationID]; !ok {
		return sentinel.ErrNotFound
	}
	s.audits[entry.RegistrationID] = append(s.audits[entry.RegistrationID], *entry)
	return nil
}

func (s *InMemory) AuditsByRegistration(_ context.Context, regID id.RegistrationID) ([]*models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.audits[regID]
	out := make([]*models.AuditEntry, 0, len(entries))
	for _, e := range entries {
		entry := e
		out = append(out, &entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
