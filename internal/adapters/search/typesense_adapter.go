package search

import (
	"context"
	"fmt"

	"github.com/mondokter/mondokter-backend/internal/domain/entities"
	"github.com/mondokter/mondokter-backend/internal/domain/repositories"
	tsclient "github.com/mondokter/mondokter-backend/internal/infrastructure/clients/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

// TypesenseAdapter implements directory search using Typesense
type TypesenseAdapter struct {
	client *tsclient.Client
}

// Ensure TypesenseAdapter implements DirectorySearchRepository
var _ repositories.DirectorySearchRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// EnsureCollections creates the search collections if missing
func (a *TypesenseAdapter) EnsureCollections(ctx context.Context) error {
	return a.client.InitSchema(ctx)
}

// IndexClinics upserts clinics into the search index
func (a *TypesenseAdapter) IndexClinics(ctx context.Context, clinics []*entities.Clinic) error {
	for _, clinic := range clinics {
		document := map[string]interface{}{
			"id":          clinic.ID,
			"name":        clinic.Name,
			"description": clinic.Description,
			"address":     clinic.Address,
			"island":      clinic.Island,
			"created_at":  clinic.CreatedAt.Unix(),
		}
		if _, err := a.client.Client().Collection(tsclient.ClinicsCollection).Documents().Upsert(ctx, document); err != nil {
			return fmt.Errorf("failed to index clinic %s: %w", clinic.ID, err)
		}
	}
	return nil
}

// IndexProviders upserts providers into the search index
func (a *TypesenseAdapter) IndexProviders(ctx context.Context, providers []*entities.Provider) error {
	for _, provider := range providers {
		if !provider.Approved() {
			continue
		}
		document := map[string]interface{}{
			"id":         provider.ID,
			"name":       provider.Name,
			"specialty":  provider.Specialty,
			"clinic_id":  provider.ClinicID,
			"bio":        provider.Bio,
			"created_at": provider.CreatedAt.Unix(),
		}
		if _, err := a.client.Client().Collection(tsclient.DoctorsCollection).Documents().Upsert(ctx, document); err != nil {
			return fmt.Errorf("failed to index provider %s: %w", provider.ID, err)
		}
	}
	return nil
}

// Search runs a full-text directory search across clinics and doctors
func (a *TypesenseAdapter) Search(ctx context.Context, query repositories.DirectorySearchQuery) (*repositories.DirectorySearchResult, error) {
	limit := query.Limit
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	page := query.Offset/limit + 1

	q := query.Query
	if q == "" {
		q = "*"
	}

	result := &repositories.DirectorySearchResult{}

	clinicParams := &api.SearchCollectionParams{
		Q:       pointer.String(q),
		QueryBy: pointer.String("name,description,address"),
		Page:    pointer.Int(page),
		PerPage: pointer.Int(limit),
	}
	if query.Island != "" {
		clinicParams.FilterBy = pointer.String(fmt.Sprintf("island:=%s", query.Island))
	}

	clinicResult, err := a.client.Client().Collection(tsclient.ClinicsCollection).Documents().Search(ctx, clinicParams)
	if err != nil {
		return nil, fmt.Errorf("failed to search clinics: %w", err)
	}
	if clinicResult.Hits != nil {
		for _, hit := range *clinicResult.Hits {
			doc := *hit.Document
			clinic := &entities.Clinic{
				ID:   stringField(doc, "id"),
				Name: stringField(doc, "name"),
			}
			clinic.Description = stringField(doc, "description")
			clinic.Address = stringField(doc, "address")
			clinic.Island = stringField(doc, "island")
			result.Clinics = append(result.Clinics, clinic)
		}
	}
	if clinicResult.Found != nil {
		result.Total += *clinicResult.Found
	}

	doctorParams := &api.SearchCollectionParams{
		Q:       pointer.String(q),
		QueryBy: pointer.String("name,specialty,bio"),
		Page:    pointer.Int(page),
		PerPage: pointer.Int(limit),
	}
	if query.Specialty != "" {
		doctorParams.FilterBy = pointer.String(fmt.Sprintf("specialty:=%s", query.Specialty))
	}

	doctorResult, err := a.client.Client().Collection(tsclient.DoctorsCollection).Documents().Search(ctx, doctorParams)
	if err != nil {
		return nil, fmt.Errorf("failed to search doctors: %w", err)
	}
	if doctorResult.Hits != nil {
		for _, hit := range *doctorResult.Hits {
			doc := *hit.Document
			provider := &entities.Provider{
				ID:   stringField(doc, "id"),
				Name: stringField(doc, "name"),
			}
			provider.Specialty = stringField(doc, "specialty")
			provider.ClinicID = stringField(doc, "clinic_id")
			provider.Bio = stringField(doc, "bio")
			result.Providers = append(result.Providers, provider)
		}
	}
	if doctorResult.Found != nil {
		result.Total += *doctorResult.Found
	}

	return result, nil
}

func stringField(doc map[string]interface{}, key string) string {
	if val, ok := doc[key].(string); ok {
		return val
	}
	return ""
}
