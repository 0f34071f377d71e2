// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go     — Handler с DI (движок, store, logger)
//   - routes.go      — регистрация маршрутов
//   - middleware.go  — middleware (logging, recovery)
//   - response.go    — унифицированные JSON-ответы и обработка ошибок
//   - dto.go         — Data Transfer Objects (request/response)
//   - run_handler.go — обработчики для /runs и /runs/{id}/feedback
//
// Клиенты наблюдают прогресс исключительно polling'ом статуса:
// push-канала нет, поэтому чтение статуса дёшево, идемпотентно и
// отражает последнее закоммиченное состояние run'а.
package api
