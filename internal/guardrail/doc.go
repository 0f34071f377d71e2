// Package guardrail проверяет результаты фаз перед принятием.
//
// Validator — чистая функция: payload фазы + набор правил → вердикт.
// Правила по фазам:
//   - schema       — обязательные непустые поля (все фазы)
//   - cap          — усечение до максимума в порядке обнаружения (все фазы)
//   - completeness — оценка по каждой категории (только SCORING)
//   - structural   — пара before/after и стиль (только DESIGN)
//   - confidence   — порог средней оценки качества (DISCOVERY)
//
// Отрицательный вердикт не роняет run: движок выполняет bounded retry
// фазы с теми же входами.
package guardrail
