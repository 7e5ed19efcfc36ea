package mq

import "errors"

// Ошибки RabbitMQ-инфраструктуры.
var (
	// ErrNoURL — адрес брокера не задан (notify.url или RABBITMQ_URL).
	ErrNoURL = errors.New("rabbitmq url is not configured")

	// ErrNoChannel — канал недоступен (идёт переподключение).
	ErrNoChannel = errors.New("no channel available")

	// ErrNotDeploymentEvent — сообщение в exchange не является событием выкладки.
	ErrNotDeploymentEvent = errors.New("not a deployment event")
)
