package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mondokter/mondokter-backend/internal/domain/providers"
	"github.com/mondokter/mondokter-backend/internal/domain/repositories"
	"github.com/rs/zerolog/log"
)

const searchCacheTTL = 60 * time.Second

// DirectoryService searches and indexes the clinic directory
type DirectoryService struct {
	clinicRepo   repositories.ClinicRepository
	providerRepo repositories.ProviderRepository
	searchRepo   repositories.DirectorySearchRepository
	cache        providers.CacheProvider
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(
	clinicRepo repositories.ClinicRepository,
	providerRepo repositories.ProviderRepository,
	searchRepo repositories.DirectorySearchRepository,
	cache providers.CacheProvider,
) *DirectoryService {
	return &DirectoryService{
		clinicRepo:   clinicRepo,
		providerRepo: providerRepo,
		searchRepo:   searchRepo,
		cache:        cache,
	}
}

// Search runs a directory search, serving repeat queries from cache
func (s *DirectoryService) Search(ctx context.Context, query repositories.DirectorySearchQuery) (*repositories.DirectorySearchResult, error) {
	cacheKey := fmt.Sprintf("directory:search:%s:%s:%s:%d:%d",
		query.Query, query.Island, query.Specialty, query.Limit, query.Offset)

	if s.cache != nil {
		if data, found, err := s.cache.Get(ctx, cacheKey); err == nil && found {
			var cached repositories.DirectorySearchResult
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	result, err := s.searchRepo.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, cacheKey, data, searchCacheTTL); err != nil {
				log.Warn().Err(err).Msg("failed to cache search result")
			}
		}
	}

	return result, nil
}

// Reindex rebuilds the search index from the database
func (s *DirectoryService) Reindex(ctx context.Context) (int, error) {
	if err := s.searchRepo.EnsureCollections(ctx); err != nil {
		return 0, fmt.Errorf("failed to ensure search collections: %w", err)
	}

	clinics, err := s.clinicRepo.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load clinics: %w", err)
	}
	if err := s.searchRepo.IndexClinics(ctx, clinics); err != nil {
		return 0, err
	}

	providerList, err := s.providerRepo.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load providers: %w", err)
	}
	if err := s.searchRepo.IndexProviders(ctx, providerList); err != nil {
		return 0, err
	}

	indexed := len(clinics) + len(providerList)
	log.Info().Int("documents", indexed).Msg("directory reindex complete")
	return indexed, nil
}
