package collab

import (
	"context"
	"fmt"

	"github.com/shaiso/Hestia/internal/domain"
)

// DefaultGeoRPM — лимит запросов к гео-сервису в минуту.
const DefaultGeoRPM = 15

// HTTPGeo — гео-collaborator за HTTP API (геокодирование + поиск
// инфраструктуры поблизости). Оценку доступности категории считает
// сам сервис.
type HTTPGeo struct {
	httpClient
}

// NewHTTPGeo создаёт клиент гео-сервиса.
func NewHTTPGeo(baseURL, apiKey string, rpm int) *HTTPGeo {
	if rpm <= 0 {
		rpm = DefaultGeoRPM
	}
	return &HTTPGeo{httpClient: newHTTPClient(baseURL, apiKey, rpm)}
}

type geocodeRequest struct {
	Address string `json:"address"`
}

// Geocode переводит адрес в координаты.
func (g *HTTPGeo) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	var resp GeocodeResult
	if err := g.postJSON(ctx, "/v1/geocode", geocodeRequest{Address: address}, &resp); err != nil {
		return nil, fmt.Errorf("geocode %q: %w", address, err)
	}
	return &resp, nil
}

type nearbyRequest struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Category string  `json:"category"`
	RadiusM  int     `json:"radius_m"`
}

// Nearby возвращает оценку категории инфраструктуры в радиусе от точки.
func (g *HTTPGeo) Nearby(ctx context.Context, lat, lng float64, category domain.AmenityCategory, radiusM int) (*NearbyResult, error) {
	req := nearbyRequest{Lat: lat, Lng: lng, Category: string(category), RadiusM: radiusM}

	var resp NearbyResult
	if err := g.postJSON(ctx, "/v1/nearby", req, &resp); err != nil {
		return nil, fmt.Errorf("nearby %s: %w", category, err)
	}
	return &resp, nil
}
