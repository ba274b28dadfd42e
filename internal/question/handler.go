package question

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"testgen/internal/app/apiresp"
	"testgen/internal/category"

	"github.com/go-chi/chi/v5"
)

const (
	maxImportBytes  = 5 << 20
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Handler struct {
	svc questionService
}

type questionService interface {
	ListQuestions(ctx context.Context, opts ListOpts) ([]Question, error)
	GetQuestion(ctx context.Context, id int64) (*Question, error)
	CreateQuestion(ctx context.Context, in Question) (*Question, error)
	UpdateQuestion(ctx context.Context, in Question) (*Question, error)
	DeleteQuestion(ctx context.Context, id int64) error
	ImportCSV(ctx context.Context, r io.Reader) (*ImportReport, error)
	ImportExcel(ctx context.Context, r io.Reader) (*ImportReport, error)
}

type upsertQuestionRequest struct {
	Specialty      string   `json:"specialty"`
	Course         string   `json:"course"`
	Discipline     string   `json:"discipline"`
	Topic          string   `json:"topic"`
	Text           string   `json:"question_text"`
	Type           string   `json:"question_type"`
	Options        []string `json:"options"`
	CorrectAnswers []int    `json:"correct_answers"`
	Points         int      `json:"points"`
}

func (r upsertQuestionRequest) toQuestion(id int64) Question {
	return Question{
		ID:             id,
		Specialty:      r.Specialty,
		Course:         r.Course,
		Discipline:     r.Discipline,
		Topic:          r.Topic,
		Text:           r.Text,
		Type:           Type(r.Type),
		Options:        r.Options,
		CorrectAnswers: r.CorrectAnswers,
		Points:         r.Points,
	}
}

func NewHandler(svc questionService) *Handler {
	return &Handler{svc: svc}
}

// List accepts ?q= for free-text browsing and ?key=specialty|course|discipline|topic.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	opts := ListOpts{Query: strings.TrimSpace(r.URL.Query().Get("q"))}
	if raw := r.URL.Query().Get("key"); raw != "" {
		key, err := category.Parse(raw)
		if err != nil {
			apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		opts.Key = key
	}

	items, err := h.svc.ListQuestions(r.Context(), opts)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := questionIDParam(w, r)
	if !ok {
		return
	}
	q, err := h.svc.GetQuestion(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, q)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req upsertQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	q, err := h.svc.CreateQuestion(r.Context(), req.toQuestion(0))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, map[string]int64{"id": q.ID})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := questionIDParam(w, r)
	if !ok {
		return
	}
	var req upsertQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	q, err := h.svc.UpdateQuestion(r.Context(), req.toQuestion(id))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, q)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := questionIDParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteQuestion(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

// Import takes a raw text/csv body, or an xlsx workbook when sent with the
// spreadsheet content type.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	importFn := h.svc.ImportCSV
	if strings.HasPrefix(r.Header.Get("Content-Type"), xlsxContentType) {
		importFn = h.svc.ImportExcel
	}
	report, err := importFn(r.Context(), body)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			apiresp.WriteErrorDetails(w, r, http.StatusBadRequest, "invalid csv", ve.Reasons)
			return
		}
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, report)
}

func questionIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid question id")
		return 0, false
	}
	return id, true
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		apiresp.WriteErrorDetails(w, r, http.StatusBadRequest, "invalid question", ve.Reasons)
	case errors.Is(err, ErrQuestionNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, err.Error())
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}
