package event_csv

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/klokku/calendars/internal/rest"
	"github.com/klokku/calendars/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

const maxImportSize = 10 << 20

type Handler struct {
	service *Service
}

type ImportResultDTO struct {
	Imported int `json:"imported"`
}

func NewHandler(service *Service) *Handler {
	return &Handler{service}
}

func (h *Handler) ExportCalendar(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["calendar"]
	text, err := h.service.Export(name)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, text); err != nil {
		log.Errorf("failed to write CSV export: %v", err)
	}
}

func (h *Handler) ImportCalendar(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	added, err := h.service.Import(mux.Vars(r)["calendar"], string(body))
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, ImportResultDTO{Imported: len(added)})
}

func writeError(w http.ResponseWriter, err error) {
	var validationErr *ImportValidationError
	switch {
	case errors.As(err, &validationErr):
		rest.WriteError(w, http.StatusUnprocessableEntity, "Invalid CSV content", validationErr.Error())
	case errors.Is(err, ErrInvalidHeader):
		rest.WriteError(w, http.StatusBadRequest, "Invalid CSV header", err.Error())
	default:
		status := calendar.HTTPStatus(err)
		if status == http.StatusInternalServerError {
			log.Errorf("CSV operation failed: %v", err)
		}
		rest.WriteError(w, status, err.Error(), "")
	}
}
