package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pable/go-telemetry-metrics/internal/aggregator"
	"github.com/pable/go-telemetry-metrics/internal/cluster"
	"github.com/pable/go-telemetry-metrics/internal/ingest"
	"github.com/pable/go-telemetry-metrics/internal/metrics"
	"github.com/pable/go-telemetry-metrics/internal/model"
	"github.com/pable/go-telemetry-metrics/internal/schema"
	"github.com/pable/go-telemetry-metrics/internal/storage"
)

// InteractionReport handles POST /api/v1/interactions/report?server=&top=&mutual=
func (h *Handler) InteractionReport(w http.ResponseWriter, r *http.Request) {
	d, ok := h.upload(w, r, model.KindInteractions)
	if !ok {
		return
	}
	h.writeInteractions(w, r, d)
}

// PlayerDrilldown handles POST /api/v1/interactions/player/{name}?server=
func (h *Handler) PlayerDrilldown(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	d, ok := h.upload(w, r, model.KindInteractions)
	if !ok {
		return
	}

	start := time.Now()
	report := h.cfg.Pipeline(h.ids, r.URL.Query().Get("server")).Run(d.Interactions)
	h.metrics.ObservePipeline("drilldown", start)

	if !slices.Contains(report.Players, name) {
		h.errorResponse(w, http.StatusNotFound, fmt.Sprintf("unknown player %q", name))
		return
	}
	h.jsonResponse(w, http.StatusOK, report.Player(name))
}

// Features handles POST /api/v1/features?metric=&cluster=&k=&eps=&min_points=&seed=
func (h *Handler) Features(w http.ResponseWriter, r *http.Request) {
	d, ok := h.upload(w, r, model.KindFeatures)
	if !ok {
		return
	}
	h.writeFeatures(w, r, d)
}

// Deaths handles POST /api/v1/deaths?cause=&carriage=&server=
func (h *Handler) Deaths(w http.ResponseWriter, r *http.Request) {
	d, ok := h.upload(w, r, model.KindDeaths)
	if !ok {
		return
	}
	h.writeDeaths(w, r, d)
}

// Shop handles POST /api/v1/shop
func (h *Handler) Shop(w http.ResponseWriter, r *http.Request) {
	d, ok := h.upload(w, r, model.KindShop)
	if !ok {
		return
	}
	h.writeShop(w, d)
}

// ListDatasets handles GET /api/v1/datasets
func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		h.errorResponse(w, http.StatusServiceUnavailable, "no dataset store configured")
		return
	}
	list, err := h.db.ListDatasets()
	if err != nil {
		h.logger.Errorw("Failed to list datasets", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to list datasets")
		return
	}
	if list == nil {
		list = []model.Dataset{}
	}
	h.jsonResponse(w, http.StatusOK, list)
}

// DatasetReport handles GET /api/v1/datasets/{prefix}/report, running the
// report that matches the stored dataset's kind with the same query
// parameters the upload routes accept.
func (h *Handler) DatasetReport(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		h.errorResponse(w, http.StatusServiceUnavailable, "no dataset store configured")
		return
	}
	prefix := chi.URLParam(r, "prefix")
	d, err := h.db.Load(prefix, "")
	if errors.Is(err, storage.ErrNotFound) {
		h.errorResponse(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.logger.Errorw("Failed to load dataset", "prefix", prefix, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to load dataset")
		return
	}

	switch d.Kind {
	case model.KindInteractions:
		h.writeInteractions(w, r, d)
	case model.KindFeatures:
		h.writeFeatures(w, r, d)
	case model.KindDeaths:
		h.writeDeaths(w, r, d)
	case model.KindShop:
		h.writeShop(w, d)
	default:
		h.errorResponse(w, http.StatusInternalServerError, fmt.Sprintf("dataset has unknown kind %q", d.Kind))
	}
}

func (h *Handler) writeInteractions(w http.ResponseWriter, r *http.Request, d *ingest.Dataset) {
	p := h.cfg.Pipeline(h.ids, r.URL.Query().Get("server"))
	top, err := intParam(r, "top", p.TopRivalries)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	p.TopRivalries = top
	if p.MutualOnly, err = boolParam(r, "mutual"); err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	report := p.Run(d.Interactions)
	h.metrics.ObservePipeline("interactions", start)
	h.jsonResponse(w, http.StatusOK, report)
}

func (h *Handler) writeFeatures(w http.ResponseWriter, r *http.Request, d *ingest.Dataset) {
	q := r.URL.Query()
	metric := h.cfg.Metric()
	if raw := q.Get("metric"); raw != "" {
		m, err := aggregator.ParseMetric(raw)
		if err != nil {
			h.errorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		metric = m
	}

	params := cluster.Params{Method: q.Get("cluster"), Seed: h.cfg.ClusterSeed}
	var err error
	if params.K, err = intParam(r, "k", cluster.DefaultK); err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if params.MinPoints, err = intParam(r, "min_points", cluster.DefaultMinPoints); err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if params.Eps, err = floatParam(r, "eps", cluster.DefaultEps); err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	seed, err := intParam(r, "seed", int(h.cfg.ClusterSeed))
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	params.Seed = int64(seed)

	c, err := cluster.New(params)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	p := aggregator.FeaturePipeline{Required: h.cfg.RequiredCategories, Metric: metric}
	report, err := p.Report(d.Features, c)
	h.metrics.ObservePipeline("features", start)
	if err != nil {
		// Clustering failures come from the caller's parameters, e.g. k > rows.
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	h.jsonResponse(w, http.StatusOK, report)
}

// deathsResponse adds the empty-selection flag to a DeathReport.
type deathsResponse struct {
	aggregator.DeathReport
	Empty bool `json:"empty"`
}

func (h *Handler) writeDeaths(w http.ResponseWriter, r *http.Request, d *ingest.Dataset) {
	q := r.URL.Query()
	f := aggregator.DeathFilter{
		Cause:      q.Get("cause"),
		CarriageID: q.Get("carriage"),
		ServerID:   q.Get("server"),
	}

	start := time.Now()
	report := aggregator.BuildDeathReport(d.Deaths, f)
	h.metrics.ObservePipeline("deaths", start)
	h.jsonResponse(w, http.StatusOK, deathsResponse{DeathReport: report, Empty: report.Empty()})
}

func (h *Handler) writeShop(w http.ResponseWriter, d *ingest.Dataset) {
	start := time.Now()
	report := aggregator.BuildShopReport(d.Shop, h.cfg.ItemGroups)
	h.metrics.ObservePipeline("shop", start)
	h.jsonResponse(w, http.StatusOK, report)
}

// upload reads the request body (raw CSV or the multipart "file" field) and
// decodes it as kind. On failure the error response is already written.
func (h *Handler) upload(w http.ResponseWriter, r *http.Request, kind string) (*ingest.Dataset, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	defer r.Body.Close()

	t, err := readTable(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.metrics.RecordUpload(kind, metrics.OutcomeBadRequest)
			h.errorResponse(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return nil, false
		}
		h.metrics.RecordUpload(kind, metrics.OutcomeBadRequest)
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	d, err := ingest.Decode(t, kind)
	var schemaErr *schema.SchemaError
	switch {
	case errors.As(err, &schemaErr):
		h.metrics.RecordUpload(kind, metrics.OutcomeSchemaError)
		h.jsonResponse(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   schemaErr.Error(),
			"missing": schemaErr.Missing,
		})
		return nil, false
	case err != nil:
		h.metrics.RecordUpload(kind, metrics.OutcomeBadRequest)
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	h.metrics.RecordUpload(kind, metrics.OutcomeOK)
	h.metrics.AddRows(kind, d.Len())
	h.logger.Debugw("decoded upload", "kind", kind, "rows", d.Len(), "hash", d.Hash)
	return d, true
}

func readTable(r *http.Request) (*ingest.Table, error) {
	var src io.Reader = r.Body
	name := "upload.csv"
	if ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil && ct == "multipart/form-data" {
		file, hdr, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("read multipart file: %w", err)
		}
		defer file.Close()
		src, name = file, hdr.Filename
	}

	t, err := ingest.Read(src)
	if err != nil {
		return nil, err
	}
	t.Name = name
	return t, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s %q: want a non-negative integer", name, raw)
	}
	return v, nil
}

func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: want true or false", name, raw)
	}
	return v, nil
}

func floatParam(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s %q: want a finite number", name, raw)
	}
	return v, nil
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warnw("Failed to encode response", "error", err)
	}
}

func (h *Handler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}
