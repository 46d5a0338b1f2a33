package booking

import (
	"github.com/google/uuid"

	"github.com/zm-collect/service-booking/internal/platform/domain"
)

// TokenGenerator issues booking tokens.
type TokenGenerator interface {
	Generate() (string, error)
}

// UUIDTokenGenerator issues random version 4 UUIDs.
type UUIDTokenGenerator struct{}

// Generate returns a canonical 36 character UUID string.
func (UUIDTokenGenerator) Generate() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", domain.NewStorageError("failed to generate booking token", err)
	}
	return id.String(), nil
}
