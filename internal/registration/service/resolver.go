package service

import (
	"context"
	"errors"

	"examreg/internal/registration/models"
	dErrors "examreg/pkg/domain-errors"
	"examreg/pkg/platform/sentinel"
)

// resolveByKey is the idempotency pre-check: it returns the registration
// already bound to the key, or nil when the key is free. Any store failure
// other than a miss propagates so the caller does not mistake an outage for
// an available key.
func (s *Service) resolveByKey(ctx context.Context, key string) (*models.Registration, error) {
	reg, err := s.store.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "idempotency lookup failed")
	}
	return reg, nil
}

// recoverLostRace handles the check-then-act window: two callers passed the
// pre-check, the store's unique constraint rejected this one's insert, so the
// winner's row must exist. Re-read it and present it exactly as if this caller
// had won the pre-check. Only the key-constraint violation routes here; every
// other insert failure propagates unchanged.
func (s *Service) recoverLostRace(ctx context.Context, key string) (*models.Registration, error) {
	winner, err := s.store.FindByKey(ctx, key)
	if err != nil {
		// The row was durably committed by the winner; failing to read it
		// back is a persistence fault, not a duplicate.
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve concurrent duplicate")
	}
	s.logger.InfoContext(ctx, "recovered concurrent duplicate submission",
		"idempotency_key", key,
		"registration_id", winner.ID.String(),
	)
	return winner, nil
}
