package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hazyhaar/co2-ledger/pkg/kit"
	"github.com/hazyhaar/co2-ledger/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter returns an http.Handler with all API routes. mcpHandler, when
// non-nil, is mounted at /mcp.
func NewRouter(d Deps, mcpHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	log := d.logger()
	h := &handler{
		search:     wrap(log, "search", searchEndpoint(d)),
		facility:   wrap(log, "facility", facilityEndpoint(d)),
		monthly:    wrap(log, "monthly", monthlyEndpoint(d)),
		summary:    wrap(log, "summary", summaryEndpoint(d)),
		rankings:   wrap(log, "rankings", rankingsEndpoint(d)),
		breakdown:  wrap(log, "breakdown", breakdownEndpoint(d)),
		sources:    wrap(log, "sources", sourcesEndpoint(d)),
		reload:     wrap(log, "reload", reloadEndpoint(d)),
		exportView: wrap(log, "export", exportEndpoint(d)),
		deps:       d,
	}

	mux.Handle("GET /v1/facilities", instrument("facilities", h.handleFacilities))
	mux.Handle("GET /v1/facilities/{name}", instrument("facility", h.handleFacility))
	mux.Handle("GET /v1/monthly", instrument("monthly", h.handleMonthly))
	mux.Handle("GET /v1/summary", instrument("summary", h.handleSummary))
	mux.Handle("GET /v1/rankings", instrument("rankings", h.handleRankings))
	mux.Handle("GET /v1/breakdown", instrument("breakdown", h.handleBreakdown))
	mux.Handle("GET /v1/sources", instrument("sources", h.handleSources))
	mux.Handle("GET /v1/export/{view}", instrument("export", h.handleExport))
	mux.HandleFunc("GET /v1/reload", methodNotAllowed) // reload must be a POST
	mux.Handle("POST /v1/reload", instrument("reload", h.handleReload))
	mux.HandleFunc("GET /v1/health", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	if mcpHandler != nil {
		mux.Handle("/mcp", mcpHandler)
	}

	return cors(mux)
}

type handler struct {
	search     kit.Endpoint
	facility   kit.Endpoint
	monthly    kit.Endpoint
	summary    kit.Endpoint
	rankings   kit.Endpoint
	breakdown  kit.Endpoint
	sources    kit.Endpoint
	reload     kit.Endpoint
	exportView kit.Endpoint
	deps       Deps
}

// --- facilities ---

func (h *handler) handleFacilities(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.search, &searchReq{Query: r.URL.Query().Get("q")})
}

func (h *handler) handleFacility(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.facility, &facilityReq{Name: r.PathValue("name")})
}

// --- aggregates ---

func (h *handler) handleMonthly(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.monthly, nil)
}

func (h *handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.summary, nil)
}

func (h *handler) handleRankings(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.serve(w, r, h.rankings, &rankingsReq{Limit: limit})
}

func (h *handler) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.breakdown, nil)
}

// --- sources and reload ---

func (h *handler) handleSources(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.sources, nil)
}

func (h *handler) handleReload(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.reload, nil)
}

// --- export ---

func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req := &exportReq{View: r.PathValue("view"), Limit: limit}
	if v := r.URL.Query().Get("columns"); v != "" {
		req.Columns = splitList(v)
	}

	resp, err := h.exportView(r.Context(), req)
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+req.View+`.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(resp.(string)))
}

// --- health ---

type healthResponse struct {
	Status       string `json:"status"`
	TotalRecords int    `json:"total_records"`
	Failed       int    `json:"failed_datasets"`
	LoadedAt     string `json:"loaded_at"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := h.deps.Registry.Current()
	status := "ok"
	if len(snap.Failed()) > 0 {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       status,
		TotalRecords: snap.TotalRecords,
		Failed:       len(snap.Failed()),
		LoadedAt:     snap.LoadedAt.UTC().Format(time.RFC3339),
	})
}

// --- helpers ---

func (h *handler) serve(w http.ResponseWriter, r *http.Request, ep kit.Endpoint, req any) {
	resp, err := ep(r.Context(), req)
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return unsetLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, &badRequest{"limit must be a non-negative integer"}
	}
	return n, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeEndpointError(w http.ResponseWriter, err error) {
	if isBadRequest(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument tags the request with an ID and records route metrics.
func instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = kit.NewRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := kit.WithRequestID(kit.WithTransport(r.Context(), "http"), id)

		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()
		next(rec, r.WithContext(ctx))
		metrics.RecordAPIRequest(route, rec.code, time.Since(start))
	})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
