package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb/geojson"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/bkk-condo-map/internal/core/health"
	"github.com/mohammed-shakir/bkk-condo-map/internal/dataset"
	"github.com/mohammed-shakir/bkk-condo-map/internal/density"
	"github.com/mohammed-shakir/bkk-condo-map/internal/geo"
	mylog "github.com/mohammed-shakir/bkk-condo-map/internal/logger"
	"github.com/mohammed-shakir/bkk-condo-map/internal/search"
	"github.com/mohammed-shakir/bkk-condo-map/internal/table"
	"github.com/mohammed-shakir/bkk-condo-map/internal/view"
	"github.com/mohammed-shakir/bkk-condo-map/internal/viewer"
)

const maxEventBytes = 64 << 10

type Options struct {
	PageSize     int
	CountDivisor float64
	DensityRes   int
}

// API serves the datasets, derived views and viewer sessions.
type API struct {
	store    *dataset.Store
	views    *view.Cache
	sessions *viewer.Manager
	opts     Options
	log      *slog.Logger
}

func New(store *dataset.Store, views *view.Cache, sessions *viewer.Manager, opts Options, log *slog.Logger) *API {
	if log == nil {
		log = slog.Default()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = view.DefaultPageSize
	}
	return &API{store: store, views: views, sessions: sessions, opts: opts, log: log}
}

// Mount registers every API route on r.
func (a *API) Mount(r chi.Router) {
	r.Get("/datasets/{kind}", a.getDataset)
	r.Get("/condos", a.getCondos)
	r.Get("/condos/values/{field}", a.getValues)
	r.Get("/condos/density", a.getDensity)
	r.Get("/regions/suggest", a.suggest)

	r.Post("/sessions", a.createSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", a.getSession)
		r.Delete("/", a.deleteSession)
		r.Post("/events", a.postEvent)
		r.Get("/commands", a.getCommands)
	})
}

// Readiness reports ready once every dataset load was attempted.
func (a *API) Readiness() (bool, map[string]health.Dataset) {
	out := make(map[string]health.Dataset, len(geo.Kinds))
	for _, k := range geo.Kinds {
		snap := a.store.Get(k)
		d := health.Dataset{Version: snap.Version, Features: snap.Len(), Loaded: snap.Attempted}
		if snap.Err != nil {
			d.Error = snap.Err.Error()
		}
		out[k.String()] = d
	}
	return a.store.Ready(), out
}

func (a *API) getDataset(w http.ResponseWriter, r *http.Request) {
	kind, err := geo.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	snap := a.store.Get(kind)
	etag := fmt.Sprintf(`"%s-%016x"`, kind, snap.Digest)
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if snap.Err != nil {
		w.Header().Set("X-Dataset-Error", snap.Err.Error())
	}
	writeGeoJSON(w, snap.Collection)
}

type condosResponse struct {
	Region     string      `json:"region,omitempty"`
	Sort       *sortOut    `json:"sort,omitempty"`
	Filters    any         `json:"filters,omitempty"`
	Rows       []table.Row `json:"rows"`
	Page       view.Page   `json:"page"`
	CondoCount float64     `json:"condo_count"`
}

type sortOut struct {
	Field     string         `json:"field"`
	Direction view.Direction `json:"direction"`
}

func (a *API) getCondos(w http.ResponseWriter, r *http.Request) {
	req, warn, err := ParseViewRequest(r, a.opts.PageSize)
	if warn != "" {
		a.log.With(mylog.Attrs(r.Context())...).Warn(warn)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	snap := a.store.Get(geo.Condos)
	idx := a.views.View(snap, req.Query)
	page := view.Paginate(len(idx), req.Page)

	rows := make([]table.Row, 0, page.End-page.Start)
	for _, i := range page.Slice(idx) {
		rows = append(rows, table.RenderRow(snap.Collection.Features[i], i, false))
	}
	out := condosResponse{
		Region:     req.Query.Region,
		Rows:       rows,
		Page:       page,
		CondoCount: view.CountInRegion(snap.Collection, req.Query.Region, a.opts.CountDivisor),
	}
	if req.Query.Sort.Active() {
		out.Sort = &sortOut{Field: req.Query.Sort.Field, Direction: req.Query.Sort.Direction}
	}
	if len(req.Query.Filters) > 0 {
		out.Filters = req.Query.Filters
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) getValues(w http.ResponseWriter, r *http.Request) {
	field := chi.URLParam(r, "field")
	if f, ok := table.FieldForLabel(field); ok {
		field = f
	}
	region := strings.TrimSpace(r.URL.Query().Get("region"))
	vals := view.UniqueValues(a.store.Get(geo.Condos).Collection, field, region)
	writeJSON(w, http.StatusOK, map[string]any{"field": field, "values": vals})
}

func (a *API) getDensity(w http.ResponseWriter, r *http.Request) {
	res, err := ParseRes(r, a.opts.DensityRes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	condos := a.store.Get(geo.Condos)
	fc := condos.Collection
	var cover []h3.Cell
	region := strings.TrimSpace(r.URL.Query().Get("region"))
	if region != "" {
		feat, ok := geo.FindRegion(a.store.Get(geo.Amphoe).Collection, region)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("unknown region %q", region))
			return
		}
		cells, err := density.RegionCells(feat, res)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		cover = cells
		fc = view.Features(fc, a.views.View(condos, view.Query{Region: region}))
	}
	out, err := density.Hexbin(fc, res, cover)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeGeoJSON(w, out)
}

func (a *API) suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	out := search.Suggest(q, a.store.Get(geo.Amphoe).Collection)
	if out == nil {
		out = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"q": q, "suggestions": out})
}

func (a *API) createSession(w http.ResponseWriter, r *http.Request) {
	v := a.sessions.Create()
	w.Header().Set("Location", "/sessions/"+v.ID())
	writeJSON(w, http.StatusCreated, v.State())
}

func (a *API) viewer(w http.ResponseWriter, r *http.Request) (*viewer.Viewer, bool) {
	id := chi.URLParam(r, "id")
	v, ok := a.sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", viewer.ErrNotFound, id))
		return nil, false
	}
	return v, true
}

func (a *API) getSession(w http.ResponseWriter, r *http.Request) {
	if v, ok := a.viewer(w, r); ok {
		writeJSON(w, http.StatusOK, v.State())
	}
}

func (a *API) deleteSession(w http.ResponseWriter, r *http.Request) {
	if !a.sessions.Delete(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, viewer.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) postEvent(w http.ResponseWriter, r *http.Request) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	var ev viewer.Event
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err := dec.Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode event: %w", err))
		return
	}
	st, err := v.Handle(ev)
	if err != nil {
		a.log.With(mylog.Attrs(mylog.WithSession(r.Context(), v.ID()))...).Debug("event rejected", "type", ev.Type, "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) getCommands(w http.ResponseWriter, r *http.Request) {
	if v, ok := a.viewer(w, r); ok {
		writeJSON(w, http.StatusOK, map[string]any{"commands": v.Commands()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeGeoJSON(w http.ResponseWriter, fc *geojson.FeatureCollection) {
	b, err := json.Marshal(fc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	var me *http.MaxBytesError
	if errors.As(err, &me) {
		status = http.StatusRequestEntityTooLarge
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
