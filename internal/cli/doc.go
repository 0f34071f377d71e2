// Package cli реализует инструмент командной строки Hestia.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Hestia API.
// Работает через HTTP, не импортирует внутренние пакеты сервиса
// (кроме mq для команды watch). Используется для запуска поисковых
// runs, наблюдения за ними и принятия решений на границе обратной связи.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Hestia API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	run, err := client.GetRun(id)
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: hestia run list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы вокруг runs:
//   - run: start, list, show, report, cancel, advance, rewind, watch
//
// Каждая группа создаётся через фабричную функцию (NewRunCmd),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
