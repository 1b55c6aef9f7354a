// Package cli реализует инструмент командной строки relay.
//
// # Обзор
//
// CLI — клиентская утилита для работы с approval-gates и инспекции
// очереди jobs через relay API. Работает по HTTP, не импортирует
// внутренние пакеты сервера.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для relay API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (dataResponse, listResponse, errorResponse)
// и обработку ошибок. Роль вызывающего уходит на сервер в
// заголовке X-Relay-Role.
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: relay checkpoint list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - checkpoint: list, status, approve, reject, sign
//   - job: list, stats
//
// Каждая группа создаётся через фабричную функцию (NewCheckpointCmd
// и т.д.), принимающую clientFn и outputFn — замыкания для ленивого
// создания Client и Output после парсинга PersistentFlags.
package cli
