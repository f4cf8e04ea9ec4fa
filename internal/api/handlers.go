package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/mmrzaf/mlpractice/internal/app"
	"github.com/mmrzaf/mlpractice/internal/domain"
	"github.com/mmrzaf/mlpractice/internal/infra/repos/runs"
	"github.com/mmrzaf/mlpractice/internal/profile"
	"github.com/mmrzaf/mlpractice/internal/registry"
)

type Handler struct {
	profileRepo profile.Repository
	runService  *app.RunService
}

func NewHandler(profileRepo profile.Repository, runService *app.RunService) *Handler {
	return &Handler{
		profileRepo: profileRepo,
		runService:  runService,
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/datasets", h.ListDatasets)
	mux.HandleFunc("GET /api/v1/datasets/{name}", h.GetDataset)
	mux.HandleFunc("GET /api/v1/profiles", h.ListProfiles)
	mux.HandleFunc("GET /api/v1/profiles/{id}", h.GetProfile)
	mux.HandleFunc("POST /api/v1/runs/plan", h.PlanRun)
	mux.HandleFunc("POST /api/v1/runs", h.CreateRun)
	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", h.GetRun)
	mux.HandleFunc("GET /api/v1/runs/{id}/verify", h.VerifyRun)
}

// DatasetInfo describes one generator for listing.
type DatasetInfo struct {
	Name         string        `json:"name"`
	DefaultCount int           `json:"default_count"`
	Schema       domain.Schema `json:"schema"`
}

// Datasets lists the registered generators in execution order.
func Datasets(reg *registry.GeneratorRegistry) ([]DatasetInfo, error) {
	out := make([]DatasetInfo, 0)
	for _, name := range reg.List() {
		gen, err := reg.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, DatasetInfo{Name: name, DefaultCount: gen.DefaultCount(), Schema: gen.Schema()})
	}
	return out, nil
}

func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	list, err := Datasets(h.runService.Registry())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	gen, err := h.runService.Registry().Get(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, DatasetInfo{Name: name, DefaultCount: gen.DefaultCount(), Schema: gen.Schema()})
}

func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	list, err := h.profileRepo.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := h.profileRepo.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Runs

func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req domain.RunRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.runService.ConfineOutputDir(&req); err != nil {
		writeError(w, err)
		return
	}
	run, err := h.runService.Run(&req)
	if err != nil {
		if run != nil {
			writeJSON(w, http.StatusInternalServerError, run)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

func (h *Handler) PlanRun(w http.ResponseWriter, r *http.Request) {
	var req domain.RunRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.runService.ConfineOutputDir(&req); err != nil {
		writeError(w, err)
		return
	}
	plan, err := h.runService.Plan(&req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	list, err := h.runService.ListRuns(limit, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runService.GetRun(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) VerifyRun(w http.ResponseWriter, r *http.Request) {
	checks, err := h.runService.VerifyRun(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checks)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, runs.ErrRunNotFound),
		errors.Is(err, profile.ErrProfileNotFound),
		errors.Is(err, registry.ErrGeneratorNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrLedgerDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSONStrict rejects unknown fields and keeps numbers as json.Number
// so that fractional counts reach validation intact.
func decodeJSONStrict(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	dec.UseNumber()
	return dec.Decode(out)
}
