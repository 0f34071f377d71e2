package guardrail

import (
	"fmt"
	"strings"

	"github.com/shaiso/Hestia/internal/domain"
)

// Значения конфигурации по умолчанию.
const (
	defaultMaxListings         = 6
	defaultConfidenceThreshold = 7.0
	defaultMaxFailingShare     = 0.5
)

// Config — конфигурация правил.
type Config struct {
	// MaxListings — максимум элементов в payload'е; лишние усекаются
	// в порядке обнаружения (default: 6).
	MaxListings int

	// ConfidenceThreshold — минимальная средняя оценка качества
	// payload'а фазы DISCOVERY по шкале 0–10 (default: 7.0).
	ConfidenceThreshold float64

	// MaxFailingShare — доля элементов, проваливших правило полноты,
	// выше которой payload отклоняется целиком (default: 0.5).
	MaxFailingShare float64
}

// Validator применяет guardrail-правила к результатам фаз.
// Не имеет состояния; детерминирован при одинаковом наборе правил.
type Validator struct {
	cfg Config
}

// New создаёт Validator. Нулевые поля конфигурации получают значения
// по умолчанию.
func New(cfg Config) *Validator {
	if cfg.MaxListings <= 0 {
		cfg.MaxListings = defaultMaxListings
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = defaultConfidenceThreshold
	}
	if cfg.MaxFailingShare <= 0 {
		cfg.MaxFailingShare = defaultMaxFailingShare
	}
	return &Validator{cfg: cfg}
}

// Validate проверяет payload фазы и возвращает принятую форму payload'а
// (после усечения и отбрасывания) вместе с вердиктом.
// Входной payload не мутируется.
func (v *Validator) Validate(phase domain.Phase, payload *domain.Payload) (*domain.Payload, domain.Verdict) {
	switch phase {
	case domain.PhaseDiscovery:
		return v.validateDiscovery(payload)
	case domain.PhaseScoring:
		return v.validateScoring(payload)
	case domain.PhaseDesign:
		return v.validateDesign(payload)
	default:
		return payload, domain.Verdict{
			Violations: []string{fmt.Sprintf("unknown phase %q", phase)},
		}
	}
}

// --- DISCOVERY ---

func (v *Validator) validateDiscovery(payload *domain.Payload) (*domain.Payload, domain.Verdict) {
	var verdict domain.Verdict

	listings := payload.Listings

	// Cap-правило: усечение в порядке обнаружения.
	if len(listings) > v.cfg.MaxListings {
		verdict.TruncatedCount = len(listings) - v.cfg.MaxListings
		listings = listings[:v.cfg.MaxListings]
	}

	if len(listings) == 0 {
		verdict.Violations = append(verdict.Violations, "no listings survived discovery")
		return payload, verdict
	}

	// Schema-правило: обязательные непустые поля.
	for i, l := range listings {
		for _, violation := range listingSchemaViolations(i, l) {
			verdict.Violations = append(verdict.Violations, violation)
		}
	}

	// Confidence-правило: средняя оценка качества против порога.
	var sum float64
	for _, l := range listings {
		sum += l.QualityScore
	}
	mean := sum / float64(len(listings))
	verdict.Score = mean * 10

	if mean < v.cfg.ConfidenceThreshold {
		verdict.Violations = append(verdict.Violations,
			fmt.Sprintf("mean quality score %.1f below threshold %.1f", mean, v.cfg.ConfidenceThreshold))
	}

	if len(verdict.Violations) > 0 {
		return payload, verdict
	}

	verdict.Passed = true
	accepted := &domain.Payload{Listings: listings}
	return accepted, verdict
}

// listingSchemaViolations проверяет обязательные поля объявления.
func listingSchemaViolations(index int, l domain.Listing) []string {
	var violations []string

	missing := func(field string) {
		violations = append(violations, fmt.Sprintf("listing %d (%s): missing %s", index+1, l.ID, field))
	}

	if strings.TrimSpace(l.ID) == "" {
		violations = append(violations, fmt.Sprintf("listing %d: missing id", index+1))
	}
	if strings.TrimSpace(l.URL) == "" {
		missing("url")
	}
	if strings.TrimSpace(l.Address) == "" {
		missing("address")
	}
	if l.Price <= 0 {
		missing("price")
	}
	if len(l.Images) == 0 {
		missing("images")
	}
	if l.Contact.Phone == "" && l.Contact.Email == "" {
		missing("contact")
	}

	return violations
}

// --- SCORING ---

func (v *Validator) validateScoring(payload *domain.Payload) (*domain.Payload, domain.Verdict) {
	var verdict domain.Verdict

	reports := payload.Locations
	if len(reports) == 0 {
		verdict.Violations = append(verdict.Violations, "no location reports in payload")
		return payload, verdict
	}

	// Completeness-правило: каждая категория должна иметь оценку.
	// Провал отдельного элемента не роняет payload, пока доля
	// проваленных не превышает половину.
	var kept []domain.LocationReport
	var itemViolations []string

	for _, r := range reports {
		missing := missingCategories(r)
		if len(missing) == 0 && validCoordinates(r.Coordinates) {
			kept = append(kept, r)
			continue
		}

		verdict.DroppedIDs = append(verdict.DroppedIDs, r.ListingID)
		if !validCoordinates(r.Coordinates) {
			itemViolations = append(itemViolations,
				fmt.Sprintf("listing %s: missing coordinates", r.ListingID))
		}
		for _, c := range missing {
			itemViolations = append(itemViolations,
				fmt.Sprintf("listing %s: missing score for %s", r.ListingID, c))
		}
	}

	failing := len(reports) - len(kept)
	if float64(failing) > v.cfg.MaxFailingShare*float64(len(reports)) {
		verdict.Violations = append(verdict.Violations,
			fmt.Sprintf("%d of %d listings failed completeness", failing, len(reports)))
		verdict.Violations = append(verdict.Violations, itemViolations...)
		return payload, verdict
	}

	if len(kept) == 0 {
		verdict.Violations = append(verdict.Violations, "no listings survived completeness check")
		return payload, verdict
	}

	var sum float64
	for _, r := range kept {
		sum += r.OverallScore
	}
	verdict.Score = sum / float64(len(kept)) * 10

	verdict.Passed = true
	accepted := &domain.Payload{Locations: kept}
	return accepted, verdict
}

// missingCategories возвращает категории без присвоенной оценки.
// Оценка, помеченная Missing, считается отсутствующей.
func missingCategories(r domain.LocationReport) []domain.AmenityCategory {
	var missing []domain.AmenityCategory
	for _, c := range domain.AmenityCategories() {
		score, ok := r.Amenities[c]
		if !ok || score.Missing {
			missing = append(missing, c)
		}
	}
	return missing
}

func validCoordinates(c domain.Coordinates) bool {
	return c.Lat != 0 || c.Lng != 0
}

// --- DESIGN ---

func (v *Validator) validateDesign(payload *domain.Payload) (*domain.Payload, domain.Verdict) {
	var verdict domain.Verdict

	designs := payload.Designs
	if len(designs) == 0 {
		verdict.Violations = append(verdict.Violations, "no design reports in payload")
		return payload, verdict
	}

	// Structural-правило: каждая комната должна нести пару before/after
	// и именованный стиль.
	for _, d := range designs {
		if strings.TrimSpace(d.Style) == "" {
			verdict.Violations = append(verdict.Violations,
				fmt.Sprintf("listing %s: missing design style", d.ListingID))
		}
		if len(d.Rooms) == 0 {
			verdict.Violations = append(verdict.Violations,
				fmt.Sprintf("listing %s: no room renders", d.ListingID))
			continue
		}
		rendered := 0
		for _, room := range d.Rooms {
			if room.Error != "" {
				continue // зафиксированный частичный результат, не нарушение структуры
			}
			if room.BeforeURL == "" || room.AfterURL == "" {
				verdict.Violations = append(verdict.Violations,
					fmt.Sprintf("listing %s: room %q missing before/after pair", d.ListingID, room.Room))
				continue
			}
			rendered++
		}
		if rendered == 0 {
			verdict.Violations = append(verdict.Violations,
				fmt.Sprintf("listing %s: no successful renders", d.ListingID))
		}
	}

	if len(verdict.Violations) > 0 {
		return payload, verdict
	}

	verdict.Passed = true
	verdict.Score = 100
	return payload, verdict
}
