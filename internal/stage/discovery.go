package stage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/Hestia/internal/collab"
	"github.com/shaiso/Hestia/internal/domain"
)

// executeDiscovery выполняет фазу DISCOVERY: один вызов
// discovery-collaborator'а с retry. Каждому найденному объявлению
// присваивается стабильный ID — по нему объединяются результаты
// последующих фаз.
func (e *Executor) executeDiscovery(ctx context.Context, in Inputs) (*domain.Payload, error) {
	var records []collab.ListingRecord
	err := e.withRetry(ctx, "discovery", func() error {
		found, ferr := e.discovery.FindListings(ctx, in.Query)
		if ferr != nil {
			return ferr
		}
		records = found
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}

	listings := make([]domain.Listing, 0, len(records))
	for _, r := range records {
		listings = append(listings, domain.Listing{
			ID:              uuid.NewString(),
			URL:             r.URL,
			Platform:        r.Platform,
			Address:         r.Address,
			Price:           r.Price,
			RentFrequency:   r.RentFrequency,
			Bedrooms:        r.Bedrooms,
			Bathrooms:       r.Bathrooms,
			Description:     r.Description,
			Images:          r.Images,
			Contact:         r.Contact,
			QualityScore:    r.QualityScore,
			ValidationNotes: r.ValidationNotes,
		})
	}

	e.logger.Info("discovery phase finished",
		"query", in.Query,
		"listings", len(listings),
	)

	return &domain.Payload{Listings: listings}, nil
}
