package domain

// Verdict — результат guardrail-проверки payload'а одной фазы.
//
// Verdict фиксирует не только pass/fail, но и всё, что было отброшено
// или усечено: даже при прошедшей проверке потребители ниже по потоку
// должны видеть, какие данные не дошли.
type Verdict struct {
	// Passed — прошёл ли payload проверку.
	Passed bool `json:"passed"`

	// Violations — упорядоченный список нарушений.
	Violations []string `json:"violations,omitempty"`

	// Score — агрегированная оценка качества payload'а (0–100).
	Score float64 `json:"score"`

	// TruncatedCount — сколько элементов отрезано cap-правилом.
	TruncatedCount int `json:"truncated_count,omitempty"`

	// DroppedIDs — ID элементов, отброшенных правилом полноты.
	DroppedIDs []string `json:"dropped_ids,omitempty"`
}

// PhaseOutput — принятый результат одной фазы.
//
// Неизменяем после принятия; при retry не мутируется, а замещается
// результатом нового attempt'а.
type PhaseOutput struct {
	// Phase — фаза, которой принадлежит результат.
	Phase Phase `json:"phase"`

	// Attempt — номер попытки, на которой payload прошёл проверку.
	Attempt int `json:"attempt"`

	// Payload — структурированный результат фазы (после усечения
	// и отбрасывания guardrail-правилами).
	Payload Payload `json:"payload"`

	// Verdict — вердикт guardrail-проверки.
	Verdict Verdict `json:"verdict"`
}
