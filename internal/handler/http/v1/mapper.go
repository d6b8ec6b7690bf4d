package v1

import (
	"github.com/Build-Your-Web-2025/SafeCity/internal/models"
)

// DTOToIncidentDraft преобразует DTO отправки в черновик для шлюза мутаций
func DTOToIncidentDraft(dto ReportIncidentRequest) models.IncidentDraft {
	return models.IncidentDraft{
		Title:       dto.Title,
		Description: dto.Description,
		Category:    models.Category(dto.Category),
		Latitude:    dto.Latitude,
		Longitude:   dto.Longitude,
		PhotoURL:    dto.PhotoURL,
	}
}

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:            model.ID,
		Title:         model.Title,
		Description:   model.Description,
		Category:      string(model.Category),
		Latitude:      model.Latitude,
		Longitude:     model.Longitude,
		ReporterID:    model.ReporterID,
		ReporterEmail: model.ReporterEmail,
		PhotoURL:      model.PhotoURL,
		Status:        string(model.Status),
		Verified:      model.Verified,
		CreatedAt:     model.CreatedAt,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}

// incidentsToFrameItems преобразует снимок в элементы кадра ленты
func incidentsToFrameItems(items []models.Incident) []IncidentResponse {
	out := make([]IncidentResponse, len(items))
	for i := range items {
		out[i] = *ModelToIncidentResponse(&items[i])
	}
	return out
}
