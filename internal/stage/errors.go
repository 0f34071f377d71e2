package stage

import "errors"

// Ошибки выполнения фаз.
var (
	// ErrRetryExhausted — collaborator не ответил успехом за отведённое
	// число попыток.
	ErrRetryExhausted = errors.New("collaborator retry attempts exhausted")
)
