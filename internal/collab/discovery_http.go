package collab

import (
	"context"
	"fmt"
)

// HTTPDiscovery — discovery-collaborator за HTTP API.
//
// Сервис объединяет web-поиск площадок и извлечение структурированных
// данных из объявлений; его внутренности для pipeline непрозрачны.
type HTTPDiscovery struct {
	httpClient
}

// NewHTTPDiscovery создаёт клиент discovery-сервиса.
// rpm > 0 включает rate limiting на запросы.
func NewHTTPDiscovery(baseURL, apiKey string, rpm int) *HTTPDiscovery {
	return &HTTPDiscovery{httpClient: newHTTPClient(baseURL, apiKey, rpm)}
}

type discoveryRequest struct {
	Query string `json:"query"`
}

type discoveryResponse struct {
	Listings []ListingRecord `json:"listings"`
}

// FindListings ищет и извлекает объявления по текстовому запросу.
func (d *HTTPDiscovery) FindListings(ctx context.Context, query string) ([]ListingRecord, error) {
	var resp discoveryResponse
	if err := d.postJSON(ctx, "/v1/listings/search", discoveryRequest{Query: query}, &resp); err != nil {
		return nil, fmt.Errorf("find listings: %w", err)
	}
	return resp.Listings, nil
}
