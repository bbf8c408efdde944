package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/seftec/platform/internal/tradefinance/domain"
)

const maxReferenceAttempts = 5

var errReferenceExhausted = errors.New("reference_generation_exhausted")

// generateReference produces a facility-prefixed reference number such as
// LC483920, retrying on the rare collision with an existing row. The unique
// index on reference_number remains the final guard.
func (s *Service) generateReference(ctx context.Context, facility domain.FacilityType) (string, error) {
	prefix := facility.ReferencePrefix()
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		candidate := fmt.Sprintf("%s%06d", prefix, rand.IntN(1000000))
		exists, err := s.repo.ReferenceExists(ctx, s.db, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", errReferenceExhausted
}
