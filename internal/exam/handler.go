package exam

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"testgen/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const DefaultNumVariants = 5

type Handler struct {
	svc             examService
	validate        *validator.Validate
	defaultVariants int
}

type examService interface {
	CreateConfiguration(ctx context.Context, in CreateConfigInput) (*Configuration, error)
	ListConfigurations(ctx context.Context) ([]Configuration, error)
	GetConfiguration(ctx context.Context, id int64) (*Configuration, error)
	DeleteConfiguration(ctx context.Context, id int64) error
	GenerateVariants(ctx context.Context, configID int64, n int) ([]Variant, error)
	ListVariants(ctx context.Context, configID int64) ([]Variant, error)
	GetVariant(ctx context.Context, id int64) (*Variant, error)
	SubmitAnswers(ctx context.Context, in SubmitInput) (*StudentResult, error)
	ListResults(ctx context.Context) ([]StudentResult, error)
}

type createConfigRequest struct {
	Name       string         `json:"name" validate:"required"`
	ConfigData map[string]int `json:"config_data" validate:"required"`
}

type generateRequest struct {
	ConfigID    int64 `json:"config_id" validate:"required,gt=0"`
	NumVariants *int  `json:"num_variants" validate:"omitempty,gt=0"`
}

type submitRequest struct {
	VariantID   int64           `json:"variant_id" validate:"required,gt=0"`
	StudentName string          `json:"student_name" validate:"required"`
	Answers     json.RawMessage `json:"answers" validate:"required"`
}

type generateResponse struct {
	Variants   []Variant   `json:"variants"`
	Shortfalls []Shortfall `json:"shortfalls,omitempty"`
}

// NewHandler uses defaultVariants when a generate request omits num_variants.
func NewHandler(svc examService, defaultVariants int) *Handler {
	if defaultVariants <= 0 {
		defaultVariants = DefaultNumVariants
	}
	return &Handler{svc: svc, validate: apiresp.NewValidator(), defaultVariants: defaultVariants}
}

func (h *Handler) ListConfigs(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListConfigurations(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) CreateConfig(w http.ResponseWriter, r *http.Request) {
	var req createConfigRequest
	if !h.decode(w, r, &req) {
		return
	}
	cfg, err := h.svc.CreateConfiguration(r.Context(), CreateConfigInput{Name: req.Name, ConfigData: req.ConfigData})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, cfg)
}

func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "invalid config id")
	if !ok {
		return
	}
	cfg, err := h.svc.GetConfiguration(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, cfg)
}

func (h *Handler) DeleteConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "invalid config id")
	if !ok {
		return
	}
	if err := h.svc.DeleteConfiguration(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) ListConfigVariants(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "invalid config id")
	if !ok {
		return
	}
	items, err := h.svc.ListVariants(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !h.decode(w, r, &req) {
		return
	}
	n := h.defaultVariants
	if req.NumVariants != nil {
		n = *req.NumVariants
	}

	variants, err := h.svc.GenerateVariants(r.Context(), req.ConfigID, n)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	res := generateResponse{Variants: variants}
	if len(variants) > 0 {
		res.Shortfalls = variants[0].Shortfalls
	}
	apiresp.WriteOK(w, r, http.StatusOK, res)
}

func (h *Handler) GetVariant(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "invalid variant id")
	if !ok {
		return
	}
	v, err := h.svc.GetVariant(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, v)
}

func (h *Handler) ListResults(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListResults(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !h.decode(w, r, &req) {
		return
	}
	sheet, err := ParseAnswers(req.Answers)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res, err := h.svc.SubmitAnswers(r.Context(), SubmitInput{
		VariantID:   req.VariantID,
		StudentName: req.StudentName,
		Answers:     sheet,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, res)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		apiresp.WriteErrorDetails(w, r, http.StatusBadRequest, "invalid input", apiresp.ValidationReasons(err))
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request, msg string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, msg)
		return 0, false
	}
	return id, true
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		apiresp.WriteErrorDetails(w, r, http.StatusBadRequest, "invalid input", ve.Reasons)
	case errors.Is(err, ErrConfigNotFound), errors.Is(err, ErrVariantNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, err.Error())
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}
