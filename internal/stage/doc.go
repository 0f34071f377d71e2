// Package stage выполняет фазы pipeline.
//
// Executor — единственная точка диспетчеризации по фазе:
//   - DISCOVERY — один вызов discovery-collaborator'а, присвоение
//     стабильных ID объявлениям
//   - SCORING   — fan-out по одному sub-task на объявление через общий
//     ограниченный пул; каждый sub-task опрашивает все категории
//     инфраструктуры (расширенный радиус для аэропортов и портов);
//     fan-in объединяет результаты по ID объявления
//   - DESIGN    — последовательная обработка объявлений: рендер комнаты
//     зависит только от анализа самой комнаты
//
// Пул разделяется всеми runs; при насыщении вызывающие блокируются
// (backpressure против лимитов внешних API). Упавший sub-task не
// прерывает соседние: его результат записывается как отсутствующий,
// и решение pass/fail остаётся за guardrail-правилами.
package stage
