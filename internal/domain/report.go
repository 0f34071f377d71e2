package domain

import "time"

// ReportMetadata — сводка итогового отчёта.
type ReportMetadata struct {
	// PropertiesFound — сколько объявлений принято в фазе DISCOVERY.
	PropertiesFound int `json:"properties_found"`

	// PropertiesAnalyzed — сколько объявлений прошло фазу SCORING.
	PropertiesAnalyzed int `json:"properties_analyzed"`

	// RoomsRedesigned — сколько комнат отрендерено в фазе DESIGN.
	RoomsRedesigned int `json:"rooms_redesigned"`

	// GeneratedAt — время сборки отчёта.
	GeneratedAt time.Time `json:"generated_at"`
}

// ReportItem — одно объявление в итоговом отчёте: описательные поля
// из DISCOVERY, оценки из SCORING и рендеры из DESIGN, соединённые
// строго по ID объявления.
type ReportItem struct {
	Listing  Listing        `json:"listing"`
	Location LocationReport `json:"location"`
	Design   DesignReport   `json:"design"`
}

// Report — итоговый составной отчёт завершённого run'а.
type Report struct {
	Metadata ReportMetadata `json:"metadata"`
	Items    []ReportItem   `json:"items"`
}
