package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/brokerage-cli/internal/audit"
	"github.com/sells-group/brokerage-cli/internal/breakeven"
	"github.com/sells-group/brokerage-cli/internal/calcerr"
	"github.com/sells-group/brokerage-cli/internal/kpi"
	"github.com/sells-group/brokerage-cli/internal/model"
	"github.com/sells-group/brokerage-cli/internal/store"
)

type api struct {
	store store.Store
	rec   *audit.Recorder
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// buildMux wires the HTTP API. st may be nil, in which case endpoints that
// need stored logs require them in the request body. The rate limiter's
// sweeper stops when ctx is done.
func buildMux(ctx context.Context, st store.Store, rec *audit.Recorder) http.Handler {
	a := &api{store: st, rec: rec}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", a.health)

	r.Route("/v1", func(r chi.Router) {
		if cfg.Server.RateLimitRPS > 0 {
			lim := newClientLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
			go lim.run(ctx)
			r.Use(lim.middleware)
		}

		r.Post("/breakeven", a.breakEven)
		r.Post("/breakeven/batch", a.breakEvenBatch)
		r.Post("/kpi/score", a.kpiScore)
		r.Post("/kpi/leaderboard", a.kpiLeaderboard)
		r.Post("/logs", a.upsertLogs)
		r.Get("/logs", a.listLogs)
		r.Get("/records", a.listRecords)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	if a.store != nil {
		if err := a.store.Ping(r.Context()); err != nil {
			zap.L().Warn("health: store ping failed", zap.Error(err))
			writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	writeJSONStatus(w, http.StatusOK, map[string]string{"status": "ok"})
}

// breakEven computes one set of inputs. The optional ?branch= names the
// record in the audit trail.
func (a *api) breakEven(w http.ResponseWriter, r *http.Request) {
	var in breakeven.Inputs
	if !decodeBody(w, r, &in) {
		return
	}
	res, err := breakeven.Compute(in)
	a.rec.BreakEven(r.Context(), r.URL.Query().Get("branch"), in, res, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusOK, res)
}

// breakEvenBatch always answers 200 once the scenario decodes; failed
// branches carry their own error.
func (a *api) breakEvenBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes())
	branches, err := breakeven.LoadScenarios(r.Body)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	results, err := breakeven.ComputeAll(r.Context(), branches, cfg.Batch.MaxConcurrency)
	if err != nil {
		writeError(w, err)
		return
	}
	a.rec.BreakEvenBatch(r.Context(), branches, results)
	writeJSONStatus(w, http.StatusOK, map[string]any{"results": batchJSON(results)})
}

type scoreRequest struct {
	AgentID string            `json:"agent_id,omitempty"`
	Month   kpi.Month         `json:"month,omitempty"`
	Logs    []kpi.DailyLog    `json:"logs,omitempty"`
	Weights *kpi.ScoreWeights `json:"weights,omitempty"`
}

// kpiScore scores the logs in the body. With agent_id and month and no
// logs, the stored logs are scored instead.
func (a *api) kpiScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ctx := r.Context()
	weights := requestWeights(req.Weights)

	logs := req.Logs
	if len(logs) == 0 && req.AgentID != "" && !req.Month.IsZero() {
		var err error
		if logs, err = a.storedLogs(ctx, store.LogFilter{AgentID: req.AgentID, Month: req.Month}); err != nil {
			writeError(w, err)
			return
		}
	}

	var (
		k   kpi.MonthlyKPIs
		err error
	)
	if req.AgentID != "" && !req.Month.IsZero() {
		k, err = kpi.ScoreAgent(req.AgentID, req.Month, logs, weights)
	} else {
		k, err = kpi.Score(logs, weights)
	}

	agentID, month := req.AgentID, req.Month
	if len(logs) > 0 && agentID == "" {
		agentID, month = logs[0].AgentID, kpi.MonthOf(logs[0].Date)
	}
	if err != nil {
		a.rec.KPI(ctx, agentID, month, len(logs), weights, nil, err)
		writeError(w, err)
		return
	}
	a.rec.KPI(ctx, agentID, month, len(logs), weights, &k, nil)

	writeJSONStatus(w, http.StatusOK, scoreResponse{KPIs: k, Score: weights.Composite(k), Weights: weights.Name})
}

type leaderboardRequest struct {
	Month   kpi.Month         `json:"month"`
	Logs    []kpi.DailyLog    `json:"logs,omitempty"`
	Roster  []string          `json:"roster,omitempty"`
	Weights *kpi.ScoreWeights `json:"weights,omitempty"`
}

func (a *api) kpiLeaderboard(w http.ResponseWriter, r *http.Request) {
	var req leaderboardRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ctx := r.Context()
	if req.Month.IsZero() {
		writeError(w, calcerr.Invalid("month", "is required"))
		return
	}

	logs := req.Logs
	if logs == nil {
		var err error
		if logs, err = a.storedLogs(ctx, store.LogFilter{Month: req.Month}); err != nil {
			writeError(w, err)
			return
		}
	}

	board, err := buildLeaderboard(ctx, a.rec, req.Month, req.Roster, logs, requestWeights(req.Weights))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusOK, board)
}

func (a *api) upsertLogs(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeError(w, calcerr.Invalid("store", "is not configured"))
		return
	}
	var req struct {
		Logs []kpi.DailyLog `json:"logs"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Logs) == 0 {
		writeError(w, calcerr.Invalid("logs", "must not be empty"))
		return
	}
	for i, l := range req.Logs {
		if l.AgentID == "" {
			writeError(w, calcerr.Invalid(fmt.Sprintf("logs[%d].agent_id", i), "is required"))
			return
		}
		if l.Date.IsZero() {
			writeError(w, calcerr.Invalid(fmt.Sprintf("logs[%d].date", i), "is required"))
			return
		}
	}
	n, err := a.store.UpsertDailyLogs(r.Context(), req.Logs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusOK, map[string]int64{"upserted": n})
}

func (a *api) listLogs(w http.ResponseWriter, r *http.Request) {
	filter := store.LogFilter{AgentID: r.URL.Query().Get("agent")}
	if s := r.URL.Query().Get("month"); s != "" {
		m, err := kpi.ParseMonth(s)
		if err != nil {
			writeError(w, calcerr.Invalid("month", "must be YYYY-MM"))
			return
		}
		filter.Month = m
	}
	logs, err := a.storedLogs(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if logs == nil {
		logs = []kpi.DailyLog{}
	}
	writeJSONStatus(w, http.StatusOK, map[string]any{"logs": logs})
}

func (a *api) listRecords(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeError(w, calcerr.Invalid("store", "is not configured"))
		return
	}
	q := r.URL.Query()
	filter := store.RecordFilter{
		Kind:    model.ComputationKind(q.Get("kind")),
		Subject: q.Get("subject"),
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		writeError(w, calcerr.Invalid("kind", "must be breakeven or kpi"))
		return
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if s := q.Get(name); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				writeError(w, calcerr.Invalid(name, "must be a non-negative integer"))
				return
			}
			*dst = n
		}
	}
	recs, err := a.store.ListComputations(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if recs == nil {
		recs = []model.ComputationRecord{}
	}
	writeJSONStatus(w, http.StatusOK, map[string]any{"records": recs})
}

func (a *api) storedLogs(ctx context.Context, filter store.LogFilter) ([]kpi.DailyLog, error) {
	if a.store == nil {
		return nil, calcerr.Invalid("logs", "are required when no store is configured")
	}
	return a.store.ListDailyLogs(ctx, filter)
}

// requestWeights fills in configured defaults. A strategy sent without
// targets is measured against the configured targets.
func requestWeights(w *kpi.ScoreWeights) kpi.ScoreWeights {
	def := configWeights()
	if w == nil {
		return def
	}
	out := *w
	if out.Targets == (kpi.Targets{}) {
		out.Targets = def.Targets
	}
	if out.Name == "" {
		out.Name = "custom"
	}
	return out
}

const defaultMaxBody = 1 << 20

func maxBodyBytes() int64 {
	if cfg.Server.MaxBodyBytes > 0 {
		return cfg.Server.MaxBodyBytes
	}
	return defaultMaxBody
}

// decodeBody reads a size-limited JSON body into v. It writes the error
// response and returns false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes())
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeBadRequest(w, err)
		return false
	}
	return true
}

func writeBadRequest(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSONStatus(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large"})
		return
	}
	if calcerr.IsUserFacing(err) {
		writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
}

// writeError maps business errors to their status and message. Anything else
// is logged and reported as a generic 500.
func writeError(w http.ResponseWriter, err error) {
	status := calcerr.HTTPStatus(err)
	body := errorBody{Error: calcerr.Message(err)}
	var ve *calcerr.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}
	if status == http.StatusInternalServerError {
		zap.L().Error("http: request failed", zap.Error(err))
	}
	writeJSONStatus(w, status, body)
}

// writeJSONStatus encodes v before committing status, so an unencodable body
// becomes a 500 instead of a success with a truncated payload.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		zap.L().Error("http: encode response", zap.Int("status", status), zap.Error(err))
		status = http.StatusInternalServerError
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(errorBody{Error: "internal server error"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		zap.L().Warn("http: write response", zap.Error(err))
	}
}
