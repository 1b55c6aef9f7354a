// Package scheduler превращает расписания в jobs.
//
// # Обзор
//
// Coordinator — компонент тика: один вызов Tick сопоставляет все
// активные расписания с текущей минутой, отфильтровывает дубликаты и
// ставит новые jobs в durable-очередь.
//
// Дедупликация процессная: ключ "{schedule_id}_{minute_unix}" живёт в
// памяти координатора и гарантирует не более одного job на расписание
// за сработавшую минуту в рамках одной жизни процесса. Через рестарт
// эта гарантия не переносится — durable-вариант обеспечивает только
// Postgres-бэкенд очереди через idempotency key.
//
// Ошибка одного расписания (кривой cron, отказ очереди) никогда не
// прерывает обработку остальных.
package scheduler
