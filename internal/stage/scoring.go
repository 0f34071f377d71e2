package stage

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Hestia/internal/collab"
	"github.com/shaiso/Hestia/internal/domain"
)

// Пороги для формулировки сильных и слабых сторон расположения.
const (
	advantageScore    = 7.0
	disadvantageScore = 4.0
)

// executeScoring выполняет фазу SCORING: fan-out по одному sub-task на
// объявление через общий пул. Каждый sub-task геокодирует адрес и
// опрашивает все категории инфраструктуры. Упавший sub-task не
// прерывает соседние — его результат записывается как отсутствующий,
// и судьбу объявления решает completeness-правило guardrail'а.
func (e *Executor) executeScoring(ctx context.Context, in Inputs) (*domain.Payload, error) {
	reports := make([]domain.LocationReport, len(in.Listings))

	g, gctx := errgroup.WithContext(ctx)
	for i, listing := range in.Listings {
		g.Go(func() error {
			return e.pool.Do(gctx, func() error {
				reports[i] = e.scoreListing(gctx, listing)
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		// Единственный источник ошибки здесь — отмена context.
		return nil, fmt.Errorf("scoring: %w", err)
	}

	e.logger.Info("scoring phase finished", "listings", len(reports))

	return &domain.Payload{Locations: reports}, nil
}

// scoreListing выполняет гео-анализ одного объявления. Ошибки
// записываются в отчёт, не возвращаются: частичный результат —
// валидный вход guardrail'а.
func (e *Executor) scoreListing(ctx context.Context, listing domain.Listing) domain.LocationReport {
	report := domain.LocationReport{
		ListingID: listing.ID,
		Amenities: make(map[domain.AmenityCategory]domain.AmenityScore),
	}

	var geo *collab.GeocodeResult
	err := e.withRetry(ctx, "geo", func() error {
		var gerr error
		geo, gerr = e.geo.Geocode(ctx, listing.Address)
		return gerr
	})
	if err != nil {
		e.logger.Warn("geocoding failed",
			"listing_id", listing.ID,
			"address", listing.Address,
			"error", err,
		)
		for _, category := range domain.AmenityCategories() {
			report.Amenities[category] = domain.AmenityScore{Missing: true, Error: "geocoding failed"}
		}
		return report
	}
	report.Coordinates = domain.Coordinates{Lat: geo.Lat, Lng: geo.Lng}

	var total float64
	var present int
	for _, category := range domain.AmenityCategories() {
		radius := collab.DefaultRadiusM
		if category.UsesExtendedRadius() {
			radius = collab.ExtendedRadiusM
		}

		var nearby *collab.NearbyResult
		err := e.withRetry(ctx, "geo", func() error {
			var nerr error
			nearby, nerr = e.geo.Nearby(ctx, geo.Lat, geo.Lng, category, radius)
			return nerr
		})
		if err != nil {
			e.logger.Warn("amenity lookup failed",
				"listing_id", listing.ID,
				"category", category,
				"error", err,
			)
			report.Amenities[category] = domain.AmenityScore{Missing: true, Error: err.Error()}
			continue
		}

		score := domain.AmenityScore{
			Score:     nearby.Score,
			Count:     nearby.Count,
			Nearest:   nearby.Nearest,
			DistanceM: nearby.DistanceM,
		}
		report.Amenities[category] = score
		total += score.Score
		present++

		switch {
		case score.Score >= advantageScore:
			report.Advantages = append(report.Advantages, fmt.Sprintf("good access to %s (%s)", category, score.Nearest))
		case score.Score < disadvantageScore:
			report.Disadvantages = append(report.Disadvantages, fmt.Sprintf("poor access to %s", category))
		}
	}

	if present > 0 {
		report.OverallScore = total / float64(present)
	}

	return report
}
