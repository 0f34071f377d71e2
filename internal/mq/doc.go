// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация событий жизненного цикла runs
//   - consumer.go   — потребление сообщений из очередей
//
// События (routing key = тип события):
//   - run.created            — run создан
//   - run.phase_completed    — фаза приняла результат
//   - run.awaiting_feedback  — run ожидает решения пользователя
//   - run.completed          — run успешно завершён
//   - run.failed             — run провален
//
// Exchanges:
//   - hestia.runs (topic) — события runs; очередь runs.audit собирает
//     все события (binding run.*), CLI watch подписывается эксклюзивной
//     очередью на интересующие ключи
package mq
