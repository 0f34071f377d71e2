package collab

import (
	"context"

	"github.com/shaiso/Hestia/internal/domain"
)

// Радиусы поиска инфраструктуры в метрах.
const (
	// DefaultRadiusM — радиус для обычных категорий.
	DefaultRadiusM = 6000

	// ExtendedRadiusM — радиус для аэропортов и морских портов.
	ExtendedRadiusM = 50000
)

// ListingRecord — сырое объявление от discovery-collaborator'а.
// ID объявлению присваивает pipeline, не collaborator.
type ListingRecord struct {
	URL             string         `json:"url"`
	Platform        string         `json:"platform,omitempty"`
	Address         string         `json:"address"`
	Price           float64        `json:"price"`
	RentFrequency   string         `json:"rent_frequency,omitempty"`
	Bedrooms        float64        `json:"bedrooms,omitempty"`
	Bathrooms       float64        `json:"bathrooms,omitempty"`
	Description     string         `json:"description,omitempty"`
	Images          []string       `json:"images"`
	Contact         domain.Contact `json:"contact"`
	QualityScore    float64        `json:"quality_score"`
	ValidationNotes []string       `json:"validation_notes,omitempty"`
}

// DiscoveryClient — контракт поиска и извлечения объявлений.
type DiscoveryClient interface {
	// FindListings ищет объявления по текстовому запросу и возвращает
	// извлечённые структурированные записи.
	FindListings(ctx context.Context, query string) ([]ListingRecord, error)
}

// GeocodeResult — результат геокодирования адреса.
type GeocodeResult struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	PlaceID          string  `json:"place_id,omitempty"`
}

// NearbyResult — результат поиска категории инфраструктуры рядом с точкой.
// Оценку доступности считает collaborator; pipeline её не пересчитывает.
type NearbyResult struct {
	Score     float64 `json:"score"`
	Count     int     `json:"count"`
	Nearest   string  `json:"nearest,omitempty"`
	DistanceM float64 `json:"distance_m,omitempty"`
}

// GeoClient — контракт гео-анализа.
type GeoClient interface {
	// Geocode переводит адрес в координаты.
	Geocode(ctx context.Context, address string) (*GeocodeResult, error)

	// Nearby возвращает оценку категории в радиусе radiusM от точки.
	Nearby(ctx context.Context, lat, lng float64, category domain.AmenityCategory, radiusM int) (*NearbyResult, error)
}

// RoomInfo — комната, распознанная на фотографиях объявления.
type RoomInfo struct {
	Room     string `json:"room"`
	ImageURL string `json:"image_url"`
}

// RenderResult — сгенерированный редизайн одной комнаты.
type RenderResult struct {
	AfterURL    string `json:"after_url"`
	Description string `json:"description,omitempty"`
}

// RenderClient — контракт анализа комнат и генерации редизайна.
type RenderClient interface {
	// AnalyzeRooms распознаёт типы комнат по фотографиям объявления.
	AnalyzeRooms(ctx context.Context, imageURLs []string) ([]RoomInfo, error)

	// Redesign генерирует изображение редизайна комнаты в заданном стиле.
	// Зависит только от анализа самой комнаты.
	Redesign(ctx context.Context, room RoomInfo, style string) (*RenderResult, error)
}
