package scheduling

import (
	"errors"

	"github.com/mondokter/mondokter-backend/internal/domain/providers"
	"github.com/mondokter/mondokter-backend/internal/infrastructure/clients/simplybook"
	"github.com/mondokter/mondokter-backend/pkg/config"
	"github.com/rs/zerolog/log"
)

// ErrMissingExternalID indicates a record has no scheduling identifier configured.
var ErrMissingExternalID = errors.New("scheduling external id is required")

// NewSchedulingProvider selects the scheduling backend from configuration.
// An incomplete SimplyBook credential set falls back to the mock provider so
// local development never needs real credentials.
func NewSchedulingProvider(cfg *config.SimplybookConfig) providers.SchedulingProvider {
	if cfg.Provider != "simplybook" {
		return NewMockAdapter()
	}

	client, err := simplybook.NewClient(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("simplybook not configured, falling back to mock scheduling")
		return NewMockAdapter()
	}

	return NewSimplybookAdapter(client)
}
