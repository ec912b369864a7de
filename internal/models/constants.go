package models

const (
	// ReferencePrefix начало человекочитаемого номера брони
	ReferencePrefix = "BK"

	// ReferenceTimeLayout формат времени внутри номера брони
	ReferenceTimeLayout = "20060102150405"

	// SlotLockTTL время удержания блокировки места при резервировании
	SlotLockTTL = 10 // секунд

	// NotifyQueueSize размер очереди воркера уведомлений
	NotifyQueueSize = 128

	// DefaultListLimit размер выборки списков по умолчанию
	DefaultListLimit = 50

	// RateLimitRPS запросов в секунду на ключ API по умолчанию
	RateLimitRPS = 10

	// RateLimitBurst всплеск запросов на ключ API по умолчанию
	RateLimitBurst = 20
)

// Notify task statuses.
const (
	TaskPending   = "pending"
	TaskRetry     = "retry"
	TaskCompleted = "completed"
	TaskFailed    = "failed"
)
