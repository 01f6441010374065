package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/intake-tracker/internal/application"
)

type adherenceService interface {
	DaySheet(ctx context.Context, principal application.Principal, date time.Time) (application.DaySheet, error)
	RangeIndicators(ctx context.Context, params application.RangeIndicatorsParams) ([]application.DayIndicator, error)
}

type intakeCoordinator interface {
	MarkTaken(ctx context.Context, params application.MarkTakenParams) (application.DoseLog, error)
}

// AdherenceHandler serves the day sheet, indicator, and intake endpoints.
type AdherenceHandler struct {
	adherence adherenceService
	intake    intakeCoordinator
	responder responder
}

// NewAdherenceHandler constructs the handler with the provided services.
func NewAdherenceHandler(adherence adherenceService, intake intakeCoordinator, logger *slog.Logger) *AdherenceHandler {
	return &AdherenceHandler{adherence: adherence, intake: intake, responder: newResponder(logger)}
}

// Day renders the reconciled day sheet for one calendar date.
func (h *AdherenceHandler) Day(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.adherence == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	date := parseDate(r.URL.Query().Get("date"))
	if date.IsZero() {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	sheet, err := h.adherence.DaySheet(r.Context(), principal, date)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toDaySheetDTO(sheet))
}

// Indicators renders per-day adherence aggregates for a date range. The range
// comes either from a period preset plus reference date or from explicit
// start/end bounds.
func (h *AdherenceHandler) Indicators(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.adherence == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	params := application.RangeIndicatorsParams{Principal: principal}
	if period := strings.TrimSpace(query.Get("period")); period != "" {
		params.Period = application.RangePeriod(period)
		params.Reference = parseDate(query.Get("date"))
	} else {
		params.Start = parseDate(query.Get("start"))
		params.End = parseDate(query.Get("end"))
	}

	indicators, err := h.adherence.RangeIndicators(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, indicatorsResponse{Indicators: toIndicatorDTOs(indicators)})
}

// LogTaken confirms one occurrence as taken.
func (h *AdherenceHandler) LogTaken(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.intake == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID := strings.TrimSpace(chi.URLParam(r, "scheduleID"))
	if scheduleID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	var req logTakenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	params := application.MarkTakenParams{
		Principal:  principal,
		ScheduleID: scheduleID,
		Date:       parseDate(req.Date),
		TimeSlot:   strings.TrimSpace(req.TimeSlot),
		Notes:      req.Notes,
	}
	if req.TakenAt != nil {
		if parsed, err := time.Parse(timestampLayout, strings.TrimSpace(*req.TakenAt)); err == nil {
			params.TakenAt = &parsed
		}
	}

	log, err := h.intake.MarkTaken(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, logTakenResponse{Log: toDoseLogDTO(log)})
}

type logTakenRequest struct {
	Date     string  `json:"date"`
	TimeSlot string  `json:"time_slot"`
	TakenAt  *string `json:"taken_at"`
	Notes    *string `json:"notes"`
}

type logTakenResponse struct {
	Log doseLogDTO `json:"log"`
}

type daySheetDTO struct {
	Date        string          `json:"date"`
	Occurrences []occurrenceDTO `json:"occurrences"`
	Total       int             `json:"total"`
	Taken       int             `json:"taken"`
}

type occurrenceDTO struct {
	Schedule scheduleDTO `json:"schedule"`
	Date     string      `json:"date"`
	TimeSlot string      `json:"time_slot"`
	Status   string      `json:"status"`
	Log      *doseLogDTO `json:"log,omitempty"`
}

type indicatorsResponse struct {
	Indicators []dayIndicatorDTO `json:"indicators"`
}

type dayIndicatorDTO struct {
	Date  string `json:"date"`
	Total int    `json:"total"`
	Taken int    `json:"taken"`
}

func toDaySheetDTO(sheet application.DaySheet) daySheetDTO {
	dto := daySheetDTO{
		Date:  sheet.Date.Format(dateLayout),
		Total: sheet.Total,
		Taken: sheet.Taken,
	}
	for _, occurrence := range sheet.Occurrences {
		converted := occurrenceDTO{
			Schedule: toScheduleDTO(occurrence.Schedule),
			Date:     occurrence.Date.Format(dateLayout),
			TimeSlot: occurrence.TimeSlot,
			Status:   occurrence.Status,
		}
		if occurrence.Log != nil {
			log := toDoseLogDTO(*occurrence.Log)
			converted.Log = &log
		}
		dto.Occurrences = append(dto.Occurrences, converted)
	}
	return dto
}

func toIndicatorDTOs(indicators []application.DayIndicator) []dayIndicatorDTO {
	if len(indicators) == 0 {
		return nil
	}
	out := make([]dayIndicatorDTO, 0, len(indicators))
	for _, indicator := range indicators {
		out = append(out, dayIndicatorDTO{
			Date:  indicator.Date.Format(dateLayout),
			Total: indicator.Total,
			Taken: indicator.Taken,
		})
	}
	return out
}
