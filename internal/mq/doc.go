// Package mq — интеграция с RabbitMQ.
//
// Ядро только публикует: уведомления о завершённых jobs и решениях по
// checkpoints, чтобы внешний workflow-движок возобновлял приостановленные
// runs без polling. Потребляющая сторона — движок, не это ядро.
//
// MQ — необязательный коллаборатор: при недоступном брокере процессы
// работают в degraded-режиме (движок узнаёт о решениях через API),
// поэтому все publish-ошибки логируются, но не фатальны.
package mq
