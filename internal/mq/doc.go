// Package mq публикует события выкладки в RabbitMQ.
//
// Структура:
//   - connection.go — соединение с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — обменник strano.deployments, очереди, привязки
//   - publisher.go  — публикация DeploymentEvent
//   - tail.go       — чтение событий через временную очередь (`strano events`)
//
// Routing keys:
//   - deployment.started    — задача начала выполняться
//   - deployment.succeeded  — задача завершилась успешно
//   - deployment.failed     — удалённая команда упала
package mq
