package domain

// AmenityCategory — категория объектов инфраструктуры вокруг объявления.
type AmenityCategory string

// Полный набор категорий гео-анализа. Каждое объявление в фазе SCORING
// должно получить оценку по каждой из них.
const (
	AmenityMarkets          AmenityCategory = "markets"
	AmenityGyms             AmenityCategory = "gyms"
	AmenityBusParks         AmenityCategory = "bus_parks"
	AmenityRailwayTerminals AmenityCategory = "railway_terminals"
	AmenityStadiums         AmenityCategory = "stadiums"
	AmenityMalls            AmenityCategory = "malls"
	AmenityAirports         AmenityCategory = "airports"
	AmenitySeaports         AmenityCategory = "seaports"
)

// AmenityCategories возвращает все категории в фиксированном порядке.
func AmenityCategories() []AmenityCategory {
	return []AmenityCategory{
		AmenityMarkets,
		AmenityGyms,
		AmenityBusParks,
		AmenityRailwayTerminals,
		AmenityStadiums,
		AmenityMalls,
		AmenityAirports,
		AmenitySeaports,
	}
}

// UsesExtendedRadius возвращает true для категорий, которые ищутся
// в расширенном радиусе (аэропорты и морские порты).
func (c AmenityCategory) UsesExtendedRadius() bool {
	return c == AmenityAirports || c == AmenitySeaports
}

// Contact — контактная информация из объявления.
type Contact struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Listing — объявление, найденное в фазе DISCOVERY.
//
// ID присваивается один раз при извлечении и используется всеми
// последующими фазами как ключ соединения. Фазы SCORING и DESIGN
// никогда не создают новых ID.
type Listing struct {
	// ID — стабильный идентификатор объявления внутри run.
	ID string `json:"id"`

	// URL — каноническая ссылка на источник объявления.
	URL string `json:"url"`

	// Platform — площадка, с которой извлечено объявление.
	Platform string `json:"platform,omitempty"`

	// Address — адрес объекта.
	Address string `json:"address"`

	// Price — цена аренды.
	Price float64 `json:"price"`

	// RentFrequency — периодичность ("monthly", "yearly").
	RentFrequency string `json:"rent_frequency,omitempty"`

	// Bedrooms, Bathrooms — характеристики объекта.
	Bedrooms  float64 `json:"bedrooms,omitempty"`
	Bathrooms float64 `json:"bathrooms,omitempty"`

	// Description — описание из объявления.
	Description string `json:"description,omitempty"`

	// Images — ссылки на фотографии комнат.
	Images []string `json:"images"`

	// Contact — контакт для связи.
	Contact Contact `json:"contact"`

	// QualityScore — оценка достоверности данных (0–10),
	// присвоенная collaborator'ом при извлечении.
	QualityScore float64 `json:"quality_score"`

	// ValidationNotes — замечания валидации от collaborator'а.
	ValidationNotes []string `json:"validation_notes,omitempty"`
}

// Coordinates — географические координаты объекта.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// AmenityScore — оценка категории инфраструктуры для одного объявления.
type AmenityScore struct {
	// Score — оценка доступности (0–10), рассчитанная collaborator'ом.
	Score float64 `json:"score"`

	// Count — количество найденных объектов категории.
	Count int `json:"count"`

	// Nearest — название ближайшего объекта.
	Nearest string `json:"nearest,omitempty"`

	// DistanceM — расстояние до ближайшего объекта в метрах.
	DistanceM float64 `json:"distance_m,omitempty"`

	// Missing — true, если sub-task по категории не вернул результат.
	// Такая оценка записывается как отсутствующая, а не придумывается.
	Missing bool `json:"missing,omitempty"`

	// Error — ошибка sub-task'а, если он упал.
	Error string `json:"error,omitempty"`
}

// LocationReport — результат гео-анализа одного объявления (фаза SCORING).
type LocationReport struct {
	// ListingID — ID объявления из фазы DISCOVERY.
	ListingID string `json:"listing_id"`

	// Coordinates — координаты объекта по результату геокодирования.
	Coordinates Coordinates `json:"coordinates"`

	// Amenities — оценки по каждой категории.
	Amenities map[AmenityCategory]AmenityScore `json:"amenities"`

	// OverallScore — средняя оценка по присутствующим категориям (0–10).
	OverallScore float64 `json:"overall_score"`

	// Advantages, Disadvantages — сильные и слабые стороны расположения.
	Advantages    []string `json:"advantages"`
	Disadvantages []string `json:"disadvantages"`
}

// RoomRender — пара "до/после" для одной комнаты (фаза DESIGN).
type RoomRender struct {
	// Room — тип комнаты ("living room", "bedroom", ...).
	Room string `json:"room"`

	// BeforeURL — исходное фото комнаты.
	BeforeURL string `json:"before_url"`

	// AfterURL — сгенерированное изображение редизайна.
	AfterURL string `json:"after_url"`

	// Description — описание редизайна.
	Description string `json:"description,omitempty"`

	// Error — ошибка генерации, если рендер не удался.
	Error string `json:"error,omitempty"`
}

// DesignReport — результат фазы DESIGN для одного объявления.
type DesignReport struct {
	// ListingID — ID объявления из фазы DISCOVERY.
	ListingID string `json:"listing_id"`

	// Style — применённый стиль редизайна.
	Style string `json:"style"`

	// Rooms — рендеры по комнатам.
	Rooms []RoomRender `json:"rooms"`
}

// Payload — структурированный результат одной фазы.
//
// Заполнено ровно одно из полей, соответствующее фазе.
type Payload struct {
	Listings  []Listing        `json:"listings,omitempty"`
	Locations []LocationReport `json:"locations,omitempty"`
	Designs   []DesignReport   `json:"designs,omitempty"`
}

// ItemIDs возвращает ID объявлений, присутствующих в payload фазы.
func (p *Payload) ItemIDs(phase Phase) []string {
	var ids []string
	switch phase {
	case PhaseDiscovery:
		for _, l := range p.Listings {
			ids = append(ids, l.ID)
		}
	case PhaseScoring:
		for _, r := range p.Locations {
			ids = append(ids, r.ListingID)
		}
	case PhaseDesign:
		for _, d := range p.Designs {
			ids = append(ids, d.ListingID)
		}
	}
	return ids
}
