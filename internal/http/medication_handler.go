package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/intake-tracker/internal/application"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05"
)

type medicationService interface {
	RegisterSchedule(ctx context.Context, params application.CreateScheduleParams) (application.Schedule, error)
	UpdateSchedule(ctx context.Context, params application.UpdateScheduleParams) (application.Schedule, error)
	RemoveSchedule(ctx context.Context, principal application.Principal, scheduleID string) error
	GetSchedule(ctx context.Context, principal application.Principal, scheduleID string) (application.Schedule, error)
	ListSchedules(ctx context.Context, params application.ListSchedulesParams) ([]application.Schedule, error)
	SearchCatalog(ctx context.Context, query string, limit int) ([]application.Medication, error)
}

// MedicationHandler serves the catalog and schedule management endpoints.
type MedicationHandler struct {
	service   medicationService
	responder responder
}

// NewMedicationHandler constructs the handler with the provided service.
func NewMedicationHandler(service medicationService, logger *slog.Logger) *MedicationHandler {
	return &MedicationHandler{service: service, responder: newResponder(logger)}
}

func (h *MedicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	schedule, err := h.service.RegisterSchedule(r.Context(), application.CreateScheduleParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, scheduleResponse{Schedule: toScheduleDTO(schedule)})
}

func (h *MedicationHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID := strings.TrimSpace(chi.URLParam(r, "scheduleID"))
	if scheduleID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	schedule, err := h.service.UpdateSchedule(r.Context(), application.UpdateScheduleParams{
		Principal:  principal,
		ScheduleID: scheduleID,
		Input:      req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleResponse{Schedule: toScheduleDTO(schedule)})
}

func (h *MedicationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID := strings.TrimSpace(chi.URLParam(r, "scheduleID"))
	if scheduleID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.RemoveSchedule(r.Context(), principal, scheduleID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *MedicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID := strings.TrimSpace(chi.URLParam(r, "scheduleID"))
	if scheduleID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	schedule, err := h.service.GetSchedule(r.Context(), principal, scheduleID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleResponse{Schedule: toScheduleDTO(schedule)})
}

func (h *MedicationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := application.ListSchedulesParams{Principal: principal}

	query := r.URL.Query()
	if from := strings.TrimSpace(query.Get("from")); from != "" {
		if parsed, err := time.Parse(dateLayout, from); err == nil {
			params.From = &parsed
		}
	}
	if to := strings.TrimSpace(query.Get("to")); to != "" {
		if parsed, err := time.Parse(dateLayout, to); err == nil {
			params.To = &parsed
		}
	}

	schedules, err := h.service.ListSchedules(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSchedulesResponse{Schedules: toScheduleDTOs(schedules)})
}

func (h *MedicationHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	limit := 0
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	medications, err := h.service.SearchCatalog(r.Context(), query.Get("q"), limit)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, searchMedicationsResponse{Medications: toMedicationDTOs(medications)})
}

type medicationInput struct {
	Name            string  `json:"name"`
	ActivePrinciple string  `json:"active_principle"`
	Manufacturer    *string `json:"manufacturer"`
	Category        *string `json:"category"`
	Strength        *string `json:"strength"`
	Form            *string `json:"form"`
}

type scheduleRequest struct {
	MedicationID      string           `json:"medication_id"`
	Medication        *medicationInput `json:"medication"`
	Dosage            string           `json:"dosage"`
	TimeSlots         []string         `json:"time_slots"`
	Route             string           `json:"route"`
	StartDate         string           `json:"start_date"`
	EndDate           *string          `json:"end_date"`
	DurationDays      int              `json:"duration_days"`
	InitialStock      int              `json:"initial_stock"`
	CurrentStock      int              `json:"current_stock"`
	LowStockThreshold int              `json:"low_stock_threshold"`
	Notes             *string          `json:"notes"`
	Active            *bool            `json:"active"`
}

func (r scheduleRequest) toInput() application.ScheduleInput {
	input := application.ScheduleInput{
		MedicationID:      strings.TrimSpace(r.MedicationID),
		Dosage:            r.Dosage,
		TimeSlots:         append([]string(nil), r.TimeSlots...),
		Route:             r.Route,
		StartDate:         parseDate(r.StartDate),
		DurationDays:      r.DurationDays,
		InitialStock:      r.InitialStock,
		CurrentStock:      r.CurrentStock,
		LowStockThreshold: r.LowStockThreshold,
		Notes:             r.Notes,
		Active:            r.Active,
	}
	if r.Medication != nil {
		input.NewMedication = &application.MedicationInput{
			Name:            r.Medication.Name,
			ActivePrinciple: r.Medication.ActivePrinciple,
			Manufacturer:    r.Medication.Manufacturer,
			Category:        r.Medication.Category,
			Strength:        r.Medication.Strength,
			Form:            r.Medication.Form,
		}
	}
	if r.EndDate != nil {
		if parsed := parseDate(*r.EndDate); !parsed.IsZero() {
			input.EndDate = &parsed
		}
	}
	return input
}

func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

type scheduleResponse struct {
	Schedule scheduleDTO `json:"schedule"`
}

type listSchedulesResponse struct {
	Schedules []scheduleDTO `json:"schedules"`
}

type searchMedicationsResponse struct {
	Medications []medicationDTO `json:"medications"`
}

type medicationDTO struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	ActivePrinciple string  `json:"active_principle"`
	Manufacturer    *string `json:"manufacturer,omitempty"`
	Category        *string `json:"category,omitempty"`
	Strength        *string `json:"strength,omitempty"`
	Form            *string `json:"form,omitempty"`
}

type scheduleDTO struct {
	ID                string        `json:"id"`
	Medication        medicationDTO `json:"medication"`
	Dosage            string        `json:"dosage"`
	TimeSlots         []string      `json:"time_slots"`
	Route             string        `json:"route,omitempty"`
	StartDate         string        `json:"start_date"`
	EndDate           *string       `json:"end_date,omitempty"`
	InitialStock      int           `json:"initial_stock"`
	CurrentStock      int           `json:"current_stock"`
	LowStockThreshold int           `json:"low_stock_threshold"`
	LowStock          bool          `json:"low_stock"`
	Notes             *string       `json:"notes,omitempty"`
	Active            bool          `json:"active"`
	CreatedAt         string        `json:"created_at"`
	UpdatedAt         string        `json:"updated_at"`
	Logs              []doseLogDTO  `json:"logs,omitempty"`
}

type doseLogDTO struct {
	ID          string  `json:"id"`
	ScheduleID  string  `json:"schedule_id"`
	ScheduledAt string  `json:"scheduled_at"`
	TakenAt     *string `json:"taken_at,omitempty"`
	Status      string  `json:"status"`
	Notes       *string `json:"notes,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func toMedicationDTO(medication application.Medication) medicationDTO {
	return medicationDTO{
		ID:              medication.ID,
		Name:            medication.Name,
		ActivePrinciple: medication.ActivePrinciple,
		Manufacturer:    medication.Manufacturer,
		Category:        medication.Category,
		Strength:        medication.Strength,
		Form:            medication.Form,
	}
}

func toMedicationDTOs(medications []application.Medication) []medicationDTO {
	if len(medications) == 0 {
		return nil
	}
	out := make([]medicationDTO, 0, len(medications))
	for _, medication := range medications {
		out = append(out, toMedicationDTO(medication))
	}
	return out
}

func toScheduleDTO(schedule application.Schedule) scheduleDTO {
	dto := scheduleDTO{
		ID:                schedule.ID,
		Medication:        toMedicationDTO(schedule.Medication),
		Dosage:            schedule.Dosage,
		TimeSlots:         append([]string(nil), schedule.TimeSlots...),
		Route:             schedule.Route,
		StartDate:         schedule.StartDate.Format(dateLayout),
		InitialStock:      schedule.InitialStock,
		CurrentStock:      schedule.CurrentStock,
		LowStockThreshold: schedule.LowStockThreshold,
		LowStock:          schedule.LowStock,
		Notes:             schedule.Notes,
		Active:            schedule.Active,
		CreatedAt:         schedule.CreatedAt.Format(timestampLayout),
		UpdatedAt:         schedule.UpdatedAt.Format(timestampLayout),
	}
	if schedule.EndDate != nil {
		end := schedule.EndDate.Format(dateLayout)
		dto.EndDate = &end
	}
	for _, log := range schedule.Logs {
		dto.Logs = append(dto.Logs, toDoseLogDTO(log))
	}
	return dto
}

func toScheduleDTOs(schedules []application.Schedule) []scheduleDTO {
	if len(schedules) == 0 {
		return nil
	}
	out := make([]scheduleDTO, 0, len(schedules))
	for _, schedule := range schedules {
		out = append(out, toScheduleDTO(schedule))
	}
	return out
}

func toDoseLogDTO(log application.DoseLog) doseLogDTO {
	dto := doseLogDTO{
		ID:          log.ID,
		ScheduleID:  log.ScheduleID,
		ScheduledAt: log.ScheduledAt.Format(timestampLayout),
		Status:      log.Status,
		Notes:       log.Notes,
		CreatedAt:   log.CreatedAt.Format(timestampLayout),
	}
	if log.TakenAt != nil {
		takenAt := log.TakenAt.Format(timestampLayout)
		dto.TakenAt = &takenAt
	}
	return dto
}
