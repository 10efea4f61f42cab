package constants

// --- СТАТУСЫ ЗАКАЗОВ (Совпадает с кодами в БД) ---
const (
	StatusNew        = "NEW"
	StatusPreparing  = "PREPARING"
	StatusReady      = "READY"
	StatusDelivering = "DELIVERING"
	StatusFinished   = "FINISHED"
	StatusCanceled   = "CANCELED"
)

// Финальные статусы: из них переходов нет.
var FinalStatuses = []string{
	StatusFinished,
	StatusCanceled,
}

// Допустимые переходы статусов. Любой переход вне этой таблицы — конфликт.
var statusTransitions = map[string][]string{
	StatusNew:        {StatusPreparing, StatusCanceled},
	StatusPreparing:  {StatusReady, StatusCanceled},
	StatusReady:      {StatusDelivering, StatusCanceled},
	StatusDelivering: {StatusFinished},
	StatusFinished:   {},
	StatusCanceled:   {},
}

// Нефинальные статусы: админский override применим только к ним.
var ActiveStatuses = []string{
	StatusNew,
	StatusPreparing,
	StatusReady,
	StatusDelivering,
}

// Статусы, в которых заказ ещё можно отменить.
var CancelableStatuses = []string{
	StatusNew,
	StatusPreparing,
	StatusReady,
}

func IsFinalStatus(code string) bool {
	for _, s := range FinalStatuses {
		if s == code {
			return true
		}
	}
	return false
}

func IsKnownStatus(code string) bool {
	_, ok := statusTransitions[code]
	return ok
}

func IsCancelable(code string) bool {
	for _, s := range CancelableStatuses {
		if s == code {
			return true
		}
	}
	return false
}

// CanTransition проверяет переход по таблице. Неизвестные коды
// никуда не переходят.
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
