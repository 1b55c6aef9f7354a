// Package executor — drain-исполнитель очереди jobs.
//
// Executor за один вызов Drain вычерпывает из очереди claimable jobs
// (до лимита MaxJobs) и выполняет их через внешний workflow-движок,
// не более MaxParallel одновременно. Паника движка изолируется в
// рамках одного job и превращается в его ошибку.
//
// Результат каждого job фиксируется тремя путями: статус в очереди,
// строка в журнале событий и сообщение в relay.jobs (если publisher
// подключён).
package executor
