package domain

import (
	"strconv"
	"strings"
)

// DefaultDesignStyle — стиль редизайна по умолчанию.
const DefaultDesignStyle = "modern minimalist"

// Criteria — критерии поиска, заданные пользователем при создании run.
//
// Criteria неизменяемы после создания run. Уточнения от rewind-решений
// накапливаются отдельно (Run.Amendments) и объединяются с критериями
// при построении поискового запроса.
type Criteria struct {
	// Location — целевой район поиска (обязательно).
	Location string `json:"location"`

	// PropertyType — тип недвижимости (обязательно). Например "apartment".
	PropertyType string `json:"property_type"`

	// Bedrooms — количество спален. 0 — не задано.
	Bedrooms int `json:"bedrooms,omitempty"`

	// Bathrooms — количество ванных. 0 — не задано.
	Bathrooms int `json:"bathrooms,omitempty"`

	// MaxPrice — верхняя граница цены. 0 — не задано.
	MaxPrice float64 `json:"max_price,omitempty"`

	// RentFrequency — периодичность аренды ("monthly", "yearly").
	RentFrequency string `json:"rent_frequency,omitempty"`

	// AdditionalRequirements — свободные требования пользователя.
	AdditionalRequirements string `json:"additional_requirements,omitempty"`
}

// Validate проверяет обязательные поля критериев.
// Требуются: Location, PropertyType и хотя бы одно из Bedrooms/MaxPrice.
func (c Criteria) Validate() []string {
	var missing []string

	if strings.TrimSpace(c.Location) == "" {
		missing = append(missing, "location")
	}
	if strings.TrimSpace(c.PropertyType) == "" {
		missing = append(missing, "property_type")
	}
	if c.Bedrooms <= 0 && c.MaxPrice <= 0 {
		missing = append(missing, "bedrooms or max_price")
	}

	return missing
}

// Normalize заполняет значения по умолчанию.
func (c *Criteria) Normalize() {
	if c.PropertyType == "" {
		c.PropertyType = "apartment"
	}
	if c.RentFrequency == "" {
		c.RentFrequency = "monthly"
	}
}

// SearchQuery строит текстовый поисковый запрос из критериев и уточнений.
func (c Criteria) SearchQuery(amendments []string) string {
	var b strings.Builder

	if c.Bedrooms > 0 {
		b.WriteString(strconv.Itoa(c.Bedrooms))
		b.WriteString(" bedroom ")
	}
	b.WriteString(c.PropertyType)
	b.WriteString(" in ")
	b.WriteString(c.Location)

	if c.MaxPrice > 0 {
		b.WriteString(" under ")
		b.WriteString(strconv.FormatFloat(c.MaxPrice, 'f', -1, 64))
	}

	b.WriteString(" (")
	b.WriteString(c.RentFrequency)
	b.WriteString(" rent)")

	if c.AdditionalRequirements != "" {
		b.WriteString(". ")
		b.WriteString(c.AdditionalRequirements)
	}

	for _, a := range amendments {
		if a = strings.TrimSpace(a); a != "" {
			b.WriteString(". ")
			b.WriteString(a)
		}
	}

	return strings.TrimSpace(b.String())
}
