package v1

import "github.com/shenikar/incident_reporting_system/internal/models"

// DTOToReportModel преобразует DTO в доменную модель. Координаты к этому моменту уже провалидированы.
func DTOToReportModel(dto CreateReportRequest) *models.Report {
	return &models.Report{
		ReporterID:  dto.UserID,
		Type:        models.ReportType(dto.Type),
		Description: dto.Description,
		Latitude:    *dto.Latitude,
		Longitude:   *dto.Longitude,
		Confirmed:   dto.Confirmed,
	}
}

// ModelToReportResponse преобразует доменную модель в DTO для ответа
func ModelToReportResponse(model *models.Report) *ReportResponse {
	return &ReportResponse{
		ID:          model.ID,
		UserID:      model.ReporterID,
		Type:        string(model.Type),
		Description: model.Description,
		Latitude:    model.Latitude,
		Longitude:   model.Longitude,
		CreatedAt:   model.CreatedAt,
		Confirmed:   model.Confirmed,
	}
}

// ModelsToReportResponses преобразует слайс моделей в слайс DTO
func ModelsToReportResponses(models []*models.Report) []*ReportResponse {
	responses := make([]*ReportResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToReportResponse(model)
	}
	return responses
}

func ModelToLocationResponse(ping *models.LocationPing) *LocationResponse {
	return &LocationResponse{
		Success: true,
		User: &UserLocationResponse{
			UserID:     ping.ReporterID,
			Latitude:   ping.Latitude,
			Longitude:  ping.Longitude,
			ObservedAt: ping.ObservedAt,
		},
	}
}

func SignalToThreatResponse(signal models.ThreatSignal) ThreatCheckResponse {
	if !signal.HasThreat {
		return ThreatCheckResponse{HasThreat: false}
	}
	return ThreatCheckResponse{
		HasThreat: true,
		Type:      string(signal.Type),
		Count:     signal.Count,
		Location: &PointResponse{
			Latitude:  signal.Centroid.Latitude,
			Longitude: signal.Centroid.Longitude,
		},
	}
}
