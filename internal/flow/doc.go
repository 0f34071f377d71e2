// Package flow реализует машину состояний run'ов.
//
// Engine — центральный компонент системы, который:
//   - Создаёт runs и ведёт их по жизненному циклу
//     INIT → DISCOVERY_RUNNING → AWAITING_FEEDBACK → SCORING_RUNNING →
//     DESIGN_RUNNING → COMPLETED
//   - Выполняет фазы через stage.Executor и проверяет результаты
//     guardrail-правилами, с ограниченным числом retry на фазу
//   - Приостанавливает run на границе обратной связи и возобновляет
//     его по решению пользователя (advance или rewind)
//   - Собирает итоговый отчёт и финализирует run (COMPLETED/FAILED)
//
// Переходы одного run сериализованы per-run мьютексом: никакие два
// перехода не гонятся. Отмена кооперативная: FAILED запрещает дальнейшие
// переходы, но не прерывает начатый вызов collaborator'а — его результат
// отбрасывается при коммите проверкой текущего статуса.
//
// FAILED терминален: перезапуска нет, клиент создаёт новый run.
package flow
