package collab

import "errors"

// Ошибки collaborator-клиентов.
var (
	// ErrCollaborator — внешний вызов завершился ошибкой или таймаутом.
	ErrCollaborator = errors.New("collaborator call failed")

	// ErrNotFound — collaborator не нашёл запрошенный объект
	// (например, адрес не геокодируется).
	ErrNotFound = errors.New("collaborator: not found")
)
