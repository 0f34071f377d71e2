package flow

import "errors"

// Ошибки контракта движка. Ошибки шлюза обратной связи возвращаются
// вызывающему немедленно и не меняют состояние run'а.
var (
	// ErrInvalidCriteria — критерии поиска не прошли валидацию;
	// run не создаётся.
	ErrInvalidCriteria = errors.New("invalid search criteria")

	// ErrRunFinished — операция над завершённым run'ом.
	ErrRunFinished = errors.New("run already finished")

	// ErrNoPendingFeedback — по run'у нет открытого feedback-запроса.
	ErrNoPendingFeedback = errors.New("no pending feedback request")

	// ErrInvalidSelection — advance-решение ссылается на объявление
	// вне набора кандидатов открытого запроса.
	ErrInvalidSelection = errors.New("selection is not a subset of candidates")

	// ErrAlreadyDecided — решение по запросу уже потреблено.
	ErrAlreadyDecided = errors.New("feedback already decided")
)
