package guardrail

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shaiso/Hestia/internal/domain"
)

// --- Helpers ---

func validListing(i int) domain.Listing {
	return domain.Listing{
		ID:           fmt.Sprintf("listing-%d", i),
		URL:          fmt.Sprintf("https://example.com/listings/%d", i),
		Address:      fmt.Sprintf("%d Admiralty Way, Lekki", i),
		Price:        3_000_000,
		Images:       []string{"https://example.com/img/living.jpg"},
		Contact:      domain.Contact{Phone: "+2348000000000"},
		QualityScore: 8.5,
	}
}

func discoveryPayload(n int) *domain.Payload {
	p := &domain.Payload{}
	for i := 0; i < n; i++ {
		p.Listings = append(p.Listings, validListing(i))
	}
	return p
}

func validLocationReport(id string) domain.LocationReport {
	amenities := make(map[domain.AmenityCategory]domain.AmenityScore)
	for _, c := range domain.AmenityCategories() {
		amenities[c] = domain.AmenityScore{Score: 7.5, Count: 3}
	}
	return domain.LocationReport{
		ListingID:    id,
		Coordinates:  domain.Coordinates{Lat: 6.45, Lng: 3.47},
		Amenities:    amenities,
		OverallScore: 7.5,
	}
}

func hasViolation(verdict domain.Verdict, substr string) bool {
	for _, v := range verdict.Violations {
		if strings.Contains(v, substr) {
			return true
		}
	}
	return false
}

// --- DISCOVERY ---

func TestValidateDiscovery_Passes(t *testing.T) {
	v := New(Config{})

	accepted, verdict := v.Validate(domain.PhaseDiscovery, discoveryPayload(4))

	if !verdict.Passed {
		t.Fatalf("expected pass, violations: %v", verdict.Violations)
	}
	if len(accepted.Listings) != 4 {
		t.Errorf("expected 4 listings accepted, got %d", len(accepted.Listings))
	}
	if verdict.Score != 85 {
		t.Errorf("expected score 85, got %.1f", verdict.Score)
	}
}

func TestValidateDiscovery_TruncatesToCap(t *testing.T) {
	v := New(Config{})
	payload := discoveryPayload(9)

	accepted, verdict := v.Validate(domain.PhaseDiscovery, payload)

	if !verdict.Passed {
		t.Fatalf("expected pass, violations: %v", verdict.Violations)
	}
	if len(accepted.Listings) != 6 {
		t.Errorf("expected 6 listings after truncation, got %d", len(accepted.Listings))
	}
	if verdict.TruncatedCount != 3 {
		t.Errorf("expected truncated count 3, got %d", verdict.TruncatedCount)
	}
	// Усечение в порядке обнаружения: первые шесть остаются.
	if accepted.Listings[0].ID != "listing-0" || accepted.Listings[5].ID != "listing-5" {
		t.Errorf("expected listings 0..5 kept, got %s..%s",
			accepted.Listings[0].ID, accepted.Listings[5].ID)
	}
	// Входной payload не мутируется.
	if len(payload.Listings) != 9 {
		t.Errorf("input payload mutated: %d listings", len(payload.Listings))
	}
}

func TestValidateDiscovery_SchemaViolations(t *testing.T) {
	v := New(Config{})

	payload := discoveryPayload(2)
	payload.Listings[0].URL = ""
	payload.Listings[1].Contact = domain.Contact{}

	_, verdict := v.Validate(domain.PhaseDiscovery, payload)

	if verdict.Passed {
		t.Fatal("expected schema failure")
	}
	if !hasViolation(verdict, "missing url") {
		t.Errorf("expected missing url violation, got %v", verdict.Violations)
	}
	if !hasViolation(verdict, "missing contact") {
		t.Errorf("expected missing contact violation, got %v", verdict.Violations)
	}
}

func TestValidateDiscovery_LowMeanQuality(t *testing.T) {
	v := New(Config{})

	payload := discoveryPayload(2)
	payload.Listings[0].QualityScore = 5.0
	payload.Listings[1].QualityScore = 6.0

	_, verdict := v.Validate(domain.PhaseDiscovery, payload)

	if verdict.Passed {
		t.Fatal("expected confidence failure")
	}
	if !hasViolation(verdict, "below threshold") {
		t.Errorf("expected threshold violation, got %v", verdict.Violations)
	}
	if verdict.Score != 55 {
		t.Errorf("expected score 55, got %.1f", verdict.Score)
	}
}

func TestValidateDiscovery_EmptyPayload(t *testing.T) {
	v := New(Config{})

	_, verdict := v.Validate(domain.PhaseDiscovery, &domain.Payload{})

	if verdict.Passed {
		t.Fatal("expected failure on empty payload")
	}
	if !hasViolation(verdict, "no listings") {
		t.Errorf("expected no-listings violation, got %v", verdict.Violations)
	}
}

// --- SCORING ---

func TestValidateScoring_DropsIncompleteMinority(t *testing.T) {
	v := New(Config{})

	incomplete := validLocationReport("listing-2")
	delete(incomplete.Amenities, domain.AmenityAirports)

	payload := &domain.Payload{Locations: []domain.LocationReport{
		validLocationReport("listing-0"),
		validLocationReport("listing-1"),
		incomplete,
	}}

	accepted, verdict := v.Validate(domain.PhaseScoring, payload)

	if !verdict.Passed {
		t.Fatalf("expected pass with dropped minority, violations: %v", verdict.Violations)
	}
	if len(accepted.Locations) != 2 {
		t.Errorf("expected 2 locations kept, got %d", len(accepted.Locations))
	}
	if len(verdict.DroppedIDs) != 1 || verdict.DroppedIDs[0] != "listing-2" {
		t.Errorf("expected listing-2 dropped, got %v", verdict.DroppedIDs)
	}
}

func TestValidateScoring_MissingScoreCountsAsAbsent(t *testing.T) {
	v := New(Config{})

	r := validLocationReport("listing-0")
	r.Amenities[domain.AmenityGyms] = domain.AmenityScore{Missing: true, Error: "collaborator timeout"}

	payload := &domain.Payload{Locations: []domain.LocationReport{
		r,
		validLocationReport("listing-1"),
		validLocationReport("listing-2"),
	}}

	_, verdict := v.Validate(domain.PhaseScoring, payload)

	if !verdict.Passed {
		t.Fatalf("expected pass, violations: %v", verdict.Violations)
	}
	if len(verdict.DroppedIDs) != 1 || verdict.DroppedIDs[0] != "listing-0" {
		t.Errorf("expected listing-0 dropped for missing score, got %v", verdict.DroppedIDs)
	}
}

func TestValidateScoring_FailsWhenMajorityIncomplete(t *testing.T) {
	v := New(Config{})

	bad1 := validLocationReport("listing-0")
	delete(bad1.Amenities, domain.AmenityMarkets)
	bad2 := validLocationReport("listing-1")
	bad2.Coordinates = domain.Coordinates{}

	payload := &domain.Payload{Locations: []domain.LocationReport{
		bad1, bad2, validLocationReport("listing-2"),
	}}

	_, verdict := v.Validate(domain.PhaseScoring, payload)

	if verdict.Passed {
		t.Fatal("expected failure when majority incomplete")
	}
	if !hasViolation(verdict, "failed completeness") {
		t.Errorf("expected completeness violation, got %v", verdict.Violations)
	}
	if !hasViolation(verdict, "missing coordinates") {
		t.Errorf("expected coordinates violation, got %v", verdict.Violations)
	}
}

func TestValidateScoring_EmptyPayload(t *testing.T) {
	v := New(Config{})

	_, verdict := v.Validate(domain.PhaseScoring, &domain.Payload{})

	if verdict.Passed {
		t.Fatal("expected failure on empty payload")
	}
}

// --- DESIGN ---

func TestValidateDesign_Passes(t *testing.T) {
	v := New(Config{})

	payload := &domain.Payload{Designs: []domain.DesignReport{{
		ListingID: "listing-0",
		Style:     "scandinavian",
		Rooms: []domain.RoomRender{
			{Room: "living room", BeforeURL: "before.jpg", AfterURL: "after.jpg"},
		},
	}}}

	_, verdict := v.Validate(domain.PhaseDesign, payload)

	if !verdict.Passed {
		t.Fatalf("expected pass, violations: %v", verdict.Violations)
	}
	if verdict.Score != 100 {
		t.Errorf("expected score 100, got %.1f", verdict.Score)
	}
}

func TestValidateDesign_MissingAfterURL(t *testing.T) {
	v := New(Config{})

	payload := &domain.Payload{Designs: []domain.DesignReport{{
		ListingID: "listing-0",
		Style:     "scandinavian",
		Rooms: []domain.RoomRender{
			{Room: "bedroom", BeforeURL: "before.jpg"},
		},
	}}}

	_, verdict := v.Validate(domain.PhaseDesign, payload)

	if verdict.Passed {
		t.Fatal("expected structural failure")
	}
	if !hasViolation(verdict, "missing before/after pair") {
		t.Errorf("expected pair violation, got %v", verdict.Violations)
	}
}

func TestValidateDesign_ErroredRoomTolerated(t *testing.T) {
	v := New(Config{})

	payload := &domain.Payload{Designs: []domain.DesignReport{{
		ListingID: "listing-0",
		Style:     "industrial",
		Rooms: []domain.RoomRender{
			{Room: "living room", BeforeURL: "before.jpg", AfterURL: "after.jpg"},
			{Room: "bedroom", BeforeURL: "before.jpg", Error: "render failed"},
		},
	}}}

	_, verdict := v.Validate(domain.PhaseDesign, payload)

	if !verdict.Passed {
		t.Fatalf("expected pass with partial render, violations: %v", verdict.Violations)
	}
}

func TestValidateDesign_AllRoomsErrored(t *testing.T) {
	v := New(Config{})

	payload := &domain.Payload{Designs: []domain.DesignReport{{
		ListingID: "listing-0",
		Style:     "industrial",
		Rooms: []domain.RoomRender{
			{Room: "living room", BeforeURL: "before.jpg", Error: "render failed"},
			{Room: "bedroom", BeforeURL: "before.jpg", Error: "render failed"},
		},
	}}}

	_, verdict := v.Validate(domain.PhaseDesign, payload)

	if verdict.Passed {
		t.Fatal("expected failure when no room rendered")
	}
	if !hasViolation(verdict, "no successful renders") {
		t.Errorf("expected no-renders violation, got %v", verdict.Violations)
	}
}

func TestValidateDesign_MissingStyle(t *testing.T) {
	v := New(Config{})

	payload := &domain.Payload{Designs: []domain.DesignReport{{
		ListingID: "listing-0",
		Rooms: []domain.RoomRender{
			{Room: "living room", BeforeURL: "before.jpg", AfterURL: "after.jpg"},
		},
	}}}

	_, verdict := v.Validate(domain.PhaseDesign, payload)

	if verdict.Passed {
		t.Fatal("expected failure on missing style")
	}
}

// --- Config ---

func TestValidate_CustomCap(t *testing.T) {
	v := New(Config{MaxListings: 2})

	accepted, verdict := v.Validate(domain.PhaseDiscovery, discoveryPayload(5))

	if !verdict.Passed {
		t.Fatalf("expected pass, violations: %v", verdict.Violations)
	}
	if len(accepted.Listings) != 2 || verdict.TruncatedCount != 3 {
		t.Errorf("expected 2 kept / 3 truncated, got %d / %d",
			len(accepted.Listings), verdict.TruncatedCount)
	}
}

func TestValidate_UnknownPhase(t *testing.T) {
	v := New(Config{})

	_, verdict := v.Validate(domain.Phase("UNKNOWN"), &domain.Payload{})

	if verdict.Passed {
		t.Fatal("expected failure for unknown phase")
	}
}
