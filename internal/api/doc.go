// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go            — Handler с DI (store, queue, logger)
//   - routes.go             — регистрация маршрутов
//   - middleware.go         — middleware (logging, recovery)
//   - response.go           — унифицированные JSON-ответы и обработка ошибок
//   - dto.go                — Data Transfer Objects (request/response)
//   - checkpoint_handler.go — обработчики для /checkpoints
//   - job_handler.go        — обработчики для /jobs
//
// API предоставляет REST endpoints для approval-gates и инспекции
// очереди jobs. Роль вызывающего передаётся заголовком X-Relay-Role.
package api
