// Package collab объявляет контракты внешних collaborator'ов pipeline
// и их реализации.
//
// Контракты:
//   - DiscoveryClient — поиск и извлечение объявлений (web discovery)
//   - GeoClient       — геокодирование и поиск инфраструктуры поблизости
//   - RenderClient    — анализ комнат и генерация редизайна
//
// Внутренняя реализация collaborator'ов для движка непрозрачна: движок
// зависит только от объявленных форм запросов и ответов. HTTP-клиенты
// ограничены rate limiter'ом — защита от лимитов внешних API.
//
// Stub-реализации (stub.go) детерминированы и используются в тестах
// и в локальном режиме без внешних сервисов.
package collab
