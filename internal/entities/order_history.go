package entities

import (
	"database/sql"
	"time"
)

// Типы событий в журнале заказа.
const (
	HistoryEventCreated      = "CREATED"
	HistoryEventStatusChange = "STATUS_CHANGE"
	HistoryEventAssigned     = "ASSIGNED"
	HistoryEventUnassigned   = "UNASSIGNED"
)

// OrderHistory — запись журнала. Журнал append-only: записи никогда
// не изменяются и не удаляются, заказ физически не удаляется тоже.
// Статусы задаются кодами, в БД они превращаются в ссылки на statuses.
type OrderHistory struct {
	ID            uint64
	OrderID       uint64
	UserID        *uint64
	UserRole      string
	EventType     string
	OldStatusCode *string
	NewStatusCode *string
	Note          *string
	CreatedAt     time.Time
}

// OrderHistoryItem — обогащённая запись для выдачи наружу.
type OrderHistoryItem struct {
	ID            uint64
	OrderID       uint64
	UserID        sql.NullInt64
	UserRole      string
	EventType     string
	OldStatusCode sql.NullString
	NewStatusCode sql.NullString
	Note          sql.NullString
	ActorFio      sql.NullString
	CreatedAt     time.Time
}
