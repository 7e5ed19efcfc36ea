package domain

// DeploymentStatus — статус выполнения задачи.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
type DeploymentStatus string

const (
	// DeploymentStatusPending — запись создана, задача ещё не начала выполняться.
	DeploymentStatusPending DeploymentStatus = "PENDING"

	// DeploymentStatusRunning — задача выполняется.
	DeploymentStatusRunning DeploymentStatus = "RUNNING"

	// DeploymentStatusSucceeded — задача успешно завершена.
	DeploymentStatusSucceeded DeploymentStatus = "SUCCEEDED"

	// DeploymentStatusFailed — удалённая команда завершилась ошибкой.
	DeploymentStatusFailed DeploymentStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s DeploymentStatus) IsTerminal() bool {
	switch s {
	case DeploymentStatusSucceeded, DeploymentStatusFailed:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление DeploymentStatus.
func (s DeploymentStatus) String() string {
	return string(s)
}

// ParseDeploymentStatus парсит строку в DeploymentStatus.
// Неизвестные значения возвращаются как пустой статус.
func ParseDeploymentStatus(s string) DeploymentStatus {
	switch s {
	case "PENDING":
		return DeploymentStatusPending
	case "RUNNING":
		return DeploymentStatusRunning
	case "SUCCEEDED":
		return DeploymentStatusSucceeded
	case "FAILED":
		return DeploymentStatusFailed
	default:
		return ""
	}
}
