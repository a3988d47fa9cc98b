package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/hazyhaar/entity-cleaner/pkg/kit"
)

// Options tunes the router. Zero values give an unlimited rate and the
// default logger.
type Options struct {
	Logger *slog.Logger
	// RatePerSecond and Burst size the token bucket shared by all
	// endpoints. RatePerSecond <= 0 disables limiting.
	RatePerSecond float64
	Burst         int
	Version       string
}

// NewRouter returns an http.Handler serving the REST routes under /v1 and
// the MCP tools at /mcp.
func NewRouter(svc *Service, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), max(opts.Burst, 1))
	}
	eps := makeEndpoints(svc, logger, limiter)
	h := &handler{eps: eps, svc: svc}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/clean/batch", methodNotAllowed)
	mux.HandleFunc("POST /v1/clean/batch", h.handleCleanBatch)
	mux.HandleFunc("POST /v1/clean/name", h.handleCleanName)
	mux.HandleFunc("GET /v1/rules", h.handleListRules)
	mux.HandleFunc("GET /v1/legal-forms", h.handleLegalForms)
	mux.HandleFunc("GET /v1/country/{value}", h.handleCountry)
	mux.HandleFunc("GET /v1/id/{type}/{value}", h.handleValidateID)
	mux.HandleFunc("GET /v1/health", h.handleHealth)
	mux.Handle("/mcp", newMCPHandler(eps, opts.Version))

	return requestID(cors(mux))
}

type handler struct {
	eps endpoints
	svc *Service
}

// --- clean ---

func (h *handler) handleCleanName(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 16*1024)
	var req cleanNameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing name")
		return
	}
	h.serve(w, r, h.eps.cleanName, &req)
}

func (h *handler) handleCleanBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	var req cleanBatchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	h.serve(w, r, h.eps.cleanBatch, &req)
}

// --- reference data ---

func (h *handler) handleListRules(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.eps.listRules, nil)
}

func (h *handler) handleLegalForms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.serve(w, r, h.eps.listLegalForms, &legalFormsReq{
		Jurisdiction: q.Get("jurisdiction"),
		Language:     q.Get("language"),
	})
}

func (h *handler) handleCountry(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.eps.lookupCountry, &countryReq{Value: r.PathValue("value")})
}

func (h *handler) handleValidateID(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.eps.validateID, &validateIDReq{
		Type:  r.PathValue("type"),
		Value: r.PathValue("value"),
	})
}

// --- health ---

type healthResponse struct {
	Status        string `json:"status"`
	Rules         int    `json:"rules"`
	Jurisdictions int    `json:"jurisdictions"`
	Countries     int    `json:"countries"`
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Rules:         h.svc.Catalog.Len(),
		Jurisdictions: len(h.svc.Dict.List()),
		Countries:     h.svc.Countries.Len(),
	})
}

// --- helpers ---

func (h *handler) serve(w http.ResponseWriter, r *http.Request, e kit.Endpoint, req any) {
	resp, err := e(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, kit.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// requestID propagates the caller's X-Request-ID or assigns a new one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, id := kit.WithRequestID(r.Context(), r.Header.Get(RequestIDHeader))
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(kit.WithTransport(ctx, kit.TransportHTTP)))
	})
}

// cors lets browser clients call the API.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Mcp-Session-Id, "+RequestIDHeader)
		w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
