package flow

import (
	"fmt"
	"time"

	"github.com/shaiso/Hestia/internal/domain"
)

// assembleReport собирает итоговый отчёт завершённого run'а, соединяя
// результаты фаз строго по ID объявления. Элементы отчёта идут в порядке
// обнаружения. Отчёт собирается только если каждое выбранное объявление
// имеет запись в каждой фазе: недостающая запись — ошибка сборки, а не
// молчаливый пропуск. ID, отсутствующий в принятом результате DISCOVERY,
// тоже ошибка: инъекция ID между фазами невозможна.
func assembleReport(run *domain.Run) (*domain.Report, error) {
	discovery, ok := run.Outputs[domain.PhaseDiscovery]
	if !ok {
		return nil, fmt.Errorf("missing %s output", domain.PhaseDiscovery)
	}
	scoring, ok := run.Outputs[domain.PhaseScoring]
	if !ok {
		return nil, fmt.Errorf("missing %s output", domain.PhaseScoring)
	}
	design, ok := run.Outputs[domain.PhaseDesign]
	if !ok {
		return nil, fmt.Errorf("missing %s output", domain.PhaseDesign)
	}

	locations := make(map[string]domain.LocationReport, len(scoring.Payload.Locations))
	for _, loc := range scoring.Payload.Locations {
		locations[loc.ListingID] = loc
	}
	designs := make(map[string]domain.DesignReport, len(design.Payload.Designs))
	for _, d := range design.Payload.Designs {
		designs[d.ListingID] = d
	}

	selected := run.SelectedListings()
	known := make(map[string]bool, len(selected))
	for _, l := range selected {
		known[l.ID] = true
	}
	for _, d := range design.Payload.Designs {
		if !known[d.ListingID] {
			return nil, fmt.Errorf("design references listing %s outside the selected set", d.ListingID)
		}
	}

	var items []domain.ReportItem
	var roomsRedesigned int
	for _, listing := range selected {
		location, ok := locations[listing.ID]
		if !ok {
			return nil, fmt.Errorf("no location report for selected listing %s", listing.ID)
		}
		d, ok := designs[listing.ID]
		if !ok {
			return nil, fmt.Errorf("no design report for selected listing %s", listing.ID)
		}

		for _, room := range d.Rooms {
			if room.AfterURL != "" {
				roomsRedesigned++
			}
		}

		items = append(items, domain.ReportItem{
			Listing:  listing,
			Location: location,
			Design:   d,
		})
	}

	return &domain.Report{
		Metadata: domain.ReportMetadata{
			PropertiesFound:    len(discovery.Payload.Listings),
			PropertiesAnalyzed: len(scoring.Payload.Locations),
			RoomsRedesigned:    roomsRedesigned,
			GeneratedAt:        time.Now().UTC(),
		},
		Items: items,
	}, nil
}
