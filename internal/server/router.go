package server

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"propscore/internal/dataset"
	"propscore/internal/history"
	"propscore/internal/metrics"
	"propscore/internal/score"
	"propscore/internal/score/rule"
	"propscore/internal/score/scorer"
	"strings"
	"time"
)

// maxRecordBytes limits the size of a posted record.
const maxRecordBytes = 1 << 20

// ApiV1Router manages routes for API version 1.
// Scores and explains posted listing records, serves recent results and the
// rule table.
type ApiV1Router struct {
	// engine: scoring engine, used for explanations and the rule dump.
	engine *score.Engine
	// batch: scores records for the configured stakeholder profiles.
	batch *scorer.BatchScorer
	// results: recent results by record ID.
	results *history.ResultsRepository
	// metrics: collectors exposed on /metrics. May be nil.
	metrics *metrics.Metrics
	// idField: record field holding the identifier.
	idField string
	// token: bearer token required on /api routes. Empty disables the check.
	token string
}

// Explanation is the explain response for one stakeholder.
type Explanation struct {
	Stakeholder string              `json:"stakeholder"`
	Total       *float64            `json:"total"`
	Metrics     []score.MetricTrace `json:"metrics"`
}

// Mux returns a configured *http.ServeMux with registered handlers.
// Registers the following routes:
// - POST /api/v1/scores: scores a posted record
// - GET /api/v1/scores/{id}: latest results of a record
// - POST /api/v1/explain: per rule trace of a posted record
// - GET /api/v1/rules: indexed rule table
// - GET /metrics: Prometheus metrics
func (ar *ApiV1Router) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/scores", ar.auth(ar.scoreHandler))
	mux.HandleFunc("GET /api/v1/scores/{id}", ar.auth(ar.resultsHandler))
	mux.HandleFunc("POST /api/v1/explain", ar.auth(ar.explainHandler))
	mux.HandleFunc("GET /api/v1/rules", ar.auth(ar.rulesHandler))
	mux.Handle("GET /metrics", ar.metrics.Handler())

	return mux
}

// auth rejects requests without the configured bearer token.
func (ar *ApiV1Router) auth(next http.HandlerFunc) http.HandlerFunc {
	if ar.token == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !found || subtle.ConstantTimeCompare([]byte(token), []byte(ar.token)) != 1 {
			slog.Warn("Unauthorized request", "path", r.URL.Path, "remote", r.RemoteAddr)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// scoreHandler scores the JSON object in the body for every profile, or for
// the one named by ?stakeholder=, and responds with the results.
func (ar *ApiV1Router) scoreHandler(w http.ResponseWriter, r *http.Request) {
	defer ar.metrics.Observe("request", time.Now())

	rec, ok := ar.readRecord(w, r)
	if !ok {
		return
	}
	profiles, ok := ar.profiles(w, r)
	if !ok {
		return
	}

	results, _ := ar.batch.ScoreRecord(rec, profiles)
	writeJSON(w, results)
}

// resultsHandler responds with the latest result of each stakeholder for the
// record ID in the path, 404 when none is known.
func (ar *ApiV1Router) resultsHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if len(id) == 0 {
		slog.Warn("Empty record id")
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	results, found := ar.results.Latest(id)
	if !found {
		slog.Warn("Results not found", "id", id)
		w.WriteHeader(http.StatusNotFound)
		return
	}

	writeJSON(w, results)
}

// explainHandler responds with the per metric traces of the posted record.
func (ar *ApiV1Router) explainHandler(w http.ResponseWriter, r *http.Request) {
	defer ar.metrics.Observe("explain", time.Now())

	rec, ok := ar.readRecord(w, r)
	if !ok {
		return
	}
	profiles, ok := ar.profiles(w, r)
	if !ok {
		return
	}

	writeJSON(w, Explain(ar.engine, rec, profiles))
}

// Explain traces rec for each profile.
func Explain(engine *score.Engine, rec score.Record, profiles []score.Profile) []Explanation {
	explanations := make([]Explanation, 0, len(profiles))
	for _, p := range profiles {
		traces := engine.Explain(rec, p)
		total := 0.0
		for _, tr := range traces {
			total += tr.Weighted
		}
		explanations = append(explanations, Explanation{
			Stakeholder: p.Stakeholder,
			Total:       score.JSONFloat(total),
			Metrics:     traces,
		})
	}
	return explanations
}

// rulesHandler dumps the rule table as metric → stakeholder → rules.
func (ar *ApiV1Router) rulesHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, RuleDump(ar.engine.Rules()))
}

// RuleDump groups the rules of a table by metric and stakeholder.
func RuleDump(t *rule.Table) map[string]map[string][]rule.Rule {
	dump := make(map[string]map[string][]rule.Rule)
	for _, metric := range t.Metrics() {
		byStakeholder := make(map[string][]rule.Rule)
		for _, stakeholder := range t.Stakeholders(metric) {
			byStakeholder[stakeholder] = t.RulesFor(metric, stakeholder)
		}
		dump[metric] = byStakeholder
	}
	return dump
}

// readRecord decodes the body into a record. On failure it writes the
// response and returns false.
func (ar *ApiV1Router) readRecord(w http.ResponseWriter, r *http.Request) (score.Record, bool) {
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRecordBytes))
	if err != nil || len(body) == 0 {
		slog.Warn("Empty record request body", "error", err)
		w.WriteHeader(http.StatusUnprocessableEntity)
		return score.Record{}, false
	}

	rec, err := dataset.ReadJSONRecord(bytes.NewReader(body), 0, ar.idField)
	if err != nil {
		slog.Warn("Unable to unmarshal record request body", "error", err)
		w.WriteHeader(http.StatusUnprocessableEntity)
		return score.Record{}, false
	}

	return rec, true
}

// profiles selects the profiles named by ?stakeholder=. On an unknown
// stakeholder it writes 404 and returns false.
func (ar *ApiV1Router) profiles(w http.ResponseWriter, r *http.Request) ([]score.Profile, bool) {
	stakeholder := r.URL.Query().Get("stakeholder")
	profiles := ar.batch.Profiles(stakeholder)
	if len(profiles) == 0 && stakeholder != "" {
		slog.Warn("Unknown stakeholder", "stakeholder", stakeholder)
		w.WriteHeader(http.StatusNotFound)
		return nil, false
	}
	return profiles, true
}

func writeJSON(w http.ResponseWriter, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Unable to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

// NewApiV1Router creates a new API v1 router.
// Parameters:
// - engine: scoring engine
// - batch: batch scorer holding the stakeholder profiles, its history is
// where scored results are appended
// - results: recent results repository
// - m: metrics, may be nil
// - idField: identifier field of posted records
// - token: bearer token, empty to disable authentication
//
// Returns pointer to configured ApiV1Router.
func NewApiV1Router(
	engine *score.Engine,
	batch *scorer.BatchScorer,
	results *history.ResultsRepository,
	m *metrics.Metrics,
	idField string,
	token string,
) *ApiV1Router {
	if idField == "" {
		idField = dataset.DefaultIdentifierField
	}
	return &ApiV1Router{
		engine:  engine,
		batch:   batch,
		results: results,
		metrics: m,
		idField: idField,
		token:   token,
	}
}
