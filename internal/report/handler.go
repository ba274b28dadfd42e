package report

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"testgen/internal/app/apiresp"
	"testgen/internal/exam"

	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc reportService
}

type reportService interface {
	SummaryByConfig(ctx context.Context, configID int64) (*ConfigSummary, error)
	ExportResultsExcel(ctx context.Context) ([]byte, error)
}

func NewHandler(svc reportService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid config id")
		return
	}
	summary, err := h.svc.SummaryByConfig(r.Context(), id)
	if err != nil {
		if errors.Is(err, exam.ErrConfigNotFound) {
			apiresp.WriteError(w, r, http.StatusNotFound, err.Error())
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, summary)
}

func (h *Handler) ExportResults(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.ExportResultsExcel(r.Context())
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	name := fmt.Sprintf("student-results-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
