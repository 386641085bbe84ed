package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// ValidStatus reports whether s is one of the four recognized
// reservation statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

const (
	// DefaultAvailabilityTTL время жизни кэша доступности в Redis
	DefaultAvailabilityTTL = 30 * 60 // 30 минут в секундах

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 1000

	// DefaultNotificationLimit количество уведомлений в выдаче
	DefaultNotificationLimit = 25

	// RateLimitBurst значение burst по умолчанию для API
	RateLimitBurst = 5
)
