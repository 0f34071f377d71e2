// Package store — долговременное хранилище runs и feedback-запросов.
//
// RunStore — единственный разделяемый между runs мутируемый ресурс.
// Записи ключуются по ID run'а и никогда не трогают чужие записи,
// поэтому межзапусковая координация не нужна; сериализацию переходов
// одного run'а обеспечивает flow-движок (single-writer-per-run).
//
// Реализации:
//   - Memory   — in-memory, для тестов и локального режима
//   - Postgres — pgx/v5, для production
package store
