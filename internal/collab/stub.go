package collab

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/shaiso/Hestia/internal/domain"
)

// StubDiscovery — детерминированный discovery-collaborator без внешних
// вызовов. Возвращает Count объявлений, производных от запроса.
type StubDiscovery struct {
	// Count — сколько объявлений возвращать (default: 8).
	Count int
}

// FindListings возвращает детерминированный набор объявлений.
func (s *StubDiscovery) FindListings(_ context.Context, query string) ([]ListingRecord, error) {
	count := s.Count
	if count <= 0 {
		count = 8
	}

	listings := make([]ListingRecord, count)
	for i := range listings {
		n := i + 1
		listings[i] = ListingRecord{
			URL:           fmt.Sprintf("https://listings.example.com/%s/%d", slug(query), n),
			Platform:      "example",
			Address:       fmt.Sprintf("%d Example Street", n),
			Price:         1000 + float64(n)*250,
			RentFrequency: "monthly",
			Bedrooms:      float64(1 + n%3),
			Bathrooms:     float64(1 + n%2),
			Description:   fmt.Sprintf("Listing %d for query %q", n, query),
			Images: []string{
				fmt.Sprintf("https://img.example.com/%d/living.jpg", n),
				fmt.Sprintf("https://img.example.com/%d/bedroom.jpg", n),
			},
			Contact:      domain.Contact{Name: "Agent", Phone: fmt.Sprintf("+100000000%02d", n)},
			QualityScore: 8 + float64(n%3)*0.5,
		}
	}
	return listings, nil
}

// StubGeo — детерминированный гео-collaborator. Координаты и оценки —
// производные от хэша входа.
type StubGeo struct{}

// Geocode возвращает детерминированные координаты для адреса.
func (s *StubGeo) Geocode(_ context.Context, address string) (*GeocodeResult, error) {
	h := hashOf(address)
	return &GeocodeResult{
		Lat:              6.4 + float64(h%1000)/10000,
		Lng:              3.3 + float64(h/1000%1000)/10000,
		FormattedAddress: address,
		PlaceID:          fmt.Sprintf("stub-%d", h%100000),
	}, nil
}

// Nearby возвращает детерминированную оценку категории.
func (s *StubGeo) Nearby(_ context.Context, lat, lng float64, category domain.AmenityCategory, radiusM int) (*NearbyResult, error) {
	h := hashOf(fmt.Sprintf("%.4f:%.4f:%s", lat, lng, category))
	count := int(h%7) + 1
	return &NearbyResult{
		Score:     5 + float64(h%50)/10,
		Count:     count,
		Nearest:   fmt.Sprintf("%s #%d", category, count),
		DistanceM: float64(h%uint32(radiusM)) + 100,
	}, nil
}

// StubRender — детерминированный render-collaborator.
type StubRender struct{}

// AnalyzeRooms выводит тип комнаты из имени файла изображения.
func (s *StubRender) AnalyzeRooms(_ context.Context, imageURLs []string) ([]RoomInfo, error) {
	rooms := make([]RoomInfo, len(imageURLs))
	for i, url := range imageURLs {
		room := "room"
		switch {
		case strings.Contains(url, "living"):
			room = "living room"
		case strings.Contains(url, "bedroom"):
			room = "bedroom"
		case strings.Contains(url, "kitchen"):
			room = "kitchen"
		}
		rooms[i] = RoomInfo{Room: room, ImageURL: url}
	}
	return rooms, nil
}

// Redesign возвращает детерминированную ссылку на рендер.
func (s *StubRender) Redesign(_ context.Context, room RoomInfo, style string) (*RenderResult, error) {
	h := hashOf(room.ImageURL + ":" + style)
	return &RenderResult{
		AfterURL:    fmt.Sprintf("https://renders.example.com/%d.jpg", h),
		Description: fmt.Sprintf("%s redesigned in %s style", room.Room, style),
	}, nil
}

// --- Helpers ---

func hashOf(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

func slug(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+'a'-'A')
		case r == ' ':
			out = append(out, '-')
		}
	}
	if len(out) == 0 {
		return "search"
	}
	return string(out)
}
