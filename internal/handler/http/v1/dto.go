package v1

import (
	"time"

	"github.com/Build-Your-Web-2025/SafeCity/internal/models"
	"github.com/google/uuid"
)

// RegisterRequest DTO для регистрации аккаунта
// @Description DTO для регистрации аккаунта
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest DTO для входа
// @Description DTO для входа
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SessionResponse DTO с данными текущей сессии
// @Description DTO с данными текущей сессии
type SessionResponse struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

// AuthResponse DTO для ответа на вход
// @Description DTO для ответа на вход
type AuthResponse struct {
	Token string          `json:"token"`
	User  SessionResponse `json:"user"`
}

// ReportIncidentRequest DTO для отправки инцидента
// @Description DTO для отправки инцидента
type ReportIncidentRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	PhotoURL    string   `json:"photo_url,omitempty"`
}

// SubmitResponse DTO с присвоенным id инцидента
// @Description DTO с присвоенным id инцидента
type SubmitResponse struct {
	ID uuid.UUID `json:"id"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	ReporterID    string    `json:"reporter_id"`
	ReporterEmail string    `json:"reporter_email,omitempty"`
	PhotoURL      string    `json:"photo_url,omitempty"`
	Status        string    `json:"status"`
	Verified      bool      `json:"verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// UploadResponse DTO с URL загруженной фотографии
// @Description DTO с URL загруженной фотографии
type UploadResponse struct {
	URL string `json:"url"`
}

// FeedFrame - кадр живой ленты: полный снимок текущего состояния
// представления, а не диф
type FeedFrame struct {
	Items   []IncidentResponse `json:"items"`
	Loading bool               `json:"loading"`
	Error   string             `json:"error,omitempty"`
}

// FeedCommand - команда клиента живой ленты
type FeedCommand struct {
	Action string     `json:"action"` // "filter" или "refresh"
	Filter FeedFilter `json:"filter"`
}

// FeedFilter - состояние фильтров производного представления
type FeedFilter struct {
	Category string `json:"category,omitempty"`
	Status   string `json:"status,omitempty"`
	Verified *bool  `json:"verified,omitempty"`
	Search   string `json:"search,omitempty"`
	Range    string `json:"range,omitempty"`
}

func sessionToResponse(sess models.Session) SessionResponse {
	return SessionResponse{
		UID:   sess.UID,
		Email: sess.Email,
		Name:  sess.Name,
		Role:  string(sess.Role),
	}
}
