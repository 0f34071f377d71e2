// Package telemetry обеспечивает наблюдаемость pipeline'а.
//
// logging.go — structured logging через slog с контекстными полями
// run ID, фазы и объявления; metrics.go — Prometheus-метрики жизненного
// цикла runs, guardrail-отказов и загрузки пула, экспортируемые
// на /metrics endpoint сервиса.
package telemetry
