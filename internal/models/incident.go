package models

import (
	"time"

	"github.com/google/uuid"
)

// Category - фиксированный набор категорий инцидентов
type Category string

const (
	CategoryRoadIssue  Category = "road_issue"
	CategoryCrime      Category = "crime"
	CategoryFire       Category = "fire"
	CategoryMedical    Category = "medical"
	CategoryCivicIssue Category = "civic_issue"
	CategoryOther      Category = "other"
)

// Status - статус обработки инцидента
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
)

// AnonymousReporter используется, когда инцидент отправлен без сессии
const AnonymousReporter = "anonymous"

// IncidentDraft - черновик отправляемого инцидента. Обязательность
// полей проверяется шлюзом мутаций до записи. Координаты заданы
// указателями: нулевая широта и долгота - валидные значения
// (экватор, гринвичский меридиан), отличимые от отсутствующих.
type IncidentDraft struct {
	Title         string   `validate:"required,min=2,max=255"`
	Description   string   `validate:"required"`
	Category      Category `validate:"required,oneof=road_issue crime fire medical civic_issue other"`
	Latitude      *float64 `validate:"required,latitude"`
	Longitude     *float64 `validate:"required,longitude"`
	PhotoURL      string   `validate:"omitempty,url"`
	ReporterID    string   `validate:"-"`
	ReporterEmail string   `validate:"omitempty,email"`
}

// Stats - счетчики инцидентов для дашборда
type Stats struct {
	Total      int              `json:"total"`
	Verified   int              `json:"verified"`
	ByCategory map[Category]int `json:"by_category"`
	ByStatus   map[Status]int   `json:"by_status"`
}

type Incident struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Category      Category  `json:"category"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	ReporterID    string    `json:"reporter_id"`
	ReporterEmail string    `json:"reporter_email"`
	PhotoURL      string    `json:"photo_url,omitempty"`
	Status        Status    `json:"status"`
	Verified      bool      `json:"verified"`
	CreatedAt     time.Time `json:"created_at"`
}
