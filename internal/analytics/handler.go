package analytics

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/realestate/internal/apperr"
	"github.com/2beens/realestate/internal/auth"
	"github.com/2beens/realestate/internal/telemetry/tracing"
	"github.com/2beens/realestate/internal/visitor"
	"github.com/2beens/realestate/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var exportCSVHeader = []string{
	"id", "path", "ip_address", "browser", "browser_version", "operating_system",
	"device_type", "referer", "country", "city", "session_id", "created_at",
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	analyticsRouter := router.PathPrefix("/analytics").Subrouter()
	analyticsRouter.HandleFunc("/visitors", handler.handleVisitors).Methods("GET").Name("analytics-visitors")
	analyticsRouter.HandleFunc("/pages", handler.handlePages).Methods("GET").Name("analytics-pages")
	analyticsRouter.HandleFunc("/browsers", handler.handleBrowsers).Methods("GET").Name("analytics-browsers")
	analyticsRouter.HandleFunc("/devices", handler.handleDevices).Methods("GET").Name("analytics-devices")
	analyticsRouter.HandleFunc("/export", handler.handleExport).Methods("GET").Name("analytics-export")
	analyticsRouter.HandleFunc("/recent", handler.handleRecent).Methods("GET").Name("analytics-recent")
	analyticsRouter.HandleFunc("/current", handler.handleCurrent).Methods("GET").Name("analytics-current")

	router.HandleFunc("/dashboard/stats", handler.handleDashboardStats).Methods("GET").Name("dashboard-stats")
}

func (handler *Handler) query(r *http.Request) (Query, error) {
	params := r.URL.Query()
	return handler.service.Query(params.Get("period"), params.Get("startDate"), params.Get("endDate"))
}

func (handler *Handler) handleVisitors(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "analyticsHandler.visitors")
	defer span.End()

	q, err := handler.query(r)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}

	series, err := handler.service.VisitorSeries(ctx, auth.IdentityFromContext(ctx), q)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteJSONResponse(w, http.StatusOK, series)
}

func (handler *Handler) handlePages(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "analyticsHandler.pages")
	defer span.End()

	q, err := handler.query(r)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}

	pages, err := handler.service.PopularPages(ctx, auth.IdentityFromContext(ctx), q)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteJSONResponse(w, http.StatusOK, pages)
}

func (handler *Handler) handleBrowsers(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "analyticsHandler.browsers")
	defer span.End()

	q, err := handler.query(r)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}

	browsers, err := handler.service.BrowserStats(ctx, auth.IdentityFromContext(ctx), q)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteJSONResponse(w, http.StatusOK, browsers)
}

func (handler *Handler) handleDevices(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "analyticsHandler.devices")
	defer span.End()

	q, err := handler.query(r)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}

	devices, err := handler.service.DeviceStats(ctx, auth.IdentityFromContext(ctx), q)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteJSONResponse(w, http.StatusOK, devices)
}

func (handler *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "analyticsHandler.recent")
	defer span.End()

	views, err := handler.service.RecentActivity(ctx, auth.IdentityFromContext(ctx))
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteJSONResponse(w, http.StatusOK, views)
}

func (handler *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "analyticsHandler.current")
	defer span.End()

	count, err := handler.service.CurrentVisitors(ctx, auth.IdentityFromContext(ctx))
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteJSONResponse(w, http.StatusOK, CurrentVisitors{Count: count})
}

func (handler *Handler) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "analyticsHandler.dashboardStats")
	defer span.End()

	stats, err := handler.service.DashboardStats(ctx, auth.IdentityFromContext(ctx))
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteJSONResponse(w, http.StatusOK, stats)
}

// handleExport streams the raw page views of the window as a JSON array, or
// as CSV with ?format=csv. Nothing is written before the first row, so an
// unauthorized or failing export still gets a proper error response.
func (handler *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "analyticsHandler.export")
	defer span.End()

	q, err := handler.query(r)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	span.SetAttributes(attribute.String("analytics.export.format", format))

	var exporter pageViewExporter
	if format == "csv" {
		exporter = newCSVExporter(w, q)
	} else {
		exporter = newJSONExporter(w)
	}

	err = handler.service.Export(ctx, auth.IdentityFromContext(ctx), q, exporter.write)
	if err != nil {
		if !exporter.started() {
			apperr.WriteHTTP(w, err)
			return
		}
		// status already sent, the client gets a truncated body
		log.Errorf("analytics export interrupted after %d rows: %s", exporter.rows(), err)
		return
	}

	if err := exporter.finish(); err != nil {
		log.Errorf("analytics export finish: %s", err)
	}
}

type pageViewExporter interface {
	write(pv *visitor.PageView) error
	finish() error
	started() bool
	rows() int
}

type csvExporter struct {
	w        http.ResponseWriter
	csv      *csv.Writer
	filename string
	count    int
	begun    bool
}

func newCSVExporter(w http.ResponseWriter, q Query) *csvExporter {
	return &csvExporter{
		w:        w,
		csv:      csv.NewWriter(w),
		filename: fmt.Sprintf("analytics-%s-%s.csv", q.Period, q.Start.UTC().Format("2006-01-02")),
	}
}

// begin sends the status and the header row. Once called the response has
// started, even if writing the row fails.
func (e *csvExporter) begin() error {
	e.begun = true
	e.w.Header().Set("Content-Type", pkg.ContentType.CSV)
	e.w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, e.filename))
	e.w.WriteHeader(http.StatusOK)
	if err := e.csv.Write(exportCSVHeader); err != nil {
		return err
	}
	e.csv.Flush()
	return e.csv.Error()
}

func (e *csvExporter) write(pv *visitor.PageView) error {
	if !e.begun {
		if err := e.begin(); err != nil {
			return err
		}
	}
	e.count++

	if err := e.csv.Write([]string{
		strconv.FormatInt(pv.ID, 10),
		pv.Path,
		pv.IPAddress,
		pv.Browser,
		pv.BrowserVersion,
		pv.OperatingSystem,
		pv.DeviceType,
		pv.Referer,
		deref(pv.Country),
		deref(pv.City),
		pv.SessionID,
		pv.CreatedAt.UTC().Format(time.RFC3339),
	}); err != nil {
		return err
	}

	// flush periodically instead of buffering the whole window
	if e.count%500 == 0 {
		e.csv.Flush()
		return e.csv.Error()
	}
	return nil
}

func (e *csvExporter) finish() error {
	if !e.begun {
		if err := e.begin(); err != nil {
			return err
		}
	}
	e.csv.Flush()
	return e.csv.Error()
}

func (e *csvExporter) started() bool { return e.begun }
func (e *csvExporter) rows() int     { return e.count }

type jsonExporter struct {
	w     http.ResponseWriter
	enc   *json.Encoder
	count int
}

func newJSONExporter(w http.ResponseWriter) *jsonExporter {
	return &jsonExporter{
		w:   w,
		enc: json.NewEncoder(w),
	}
}

func (e *jsonExporter) write(pv *visitor.PageView) error {
	sep := ","
	if e.count == 0 {
		e.w.Header().Set("Content-Type", pkg.ContentType.JSON)
		e.w.WriteHeader(http.StatusOK)
		sep = "["
	}
	e.count++

	if _, err := e.w.Write([]byte(sep)); err != nil {
		return err
	}
	return e.enc.Encode(pv)
}

func (e *jsonExporter) finish() error {
	if e.count == 0 {
		pkg.WriteResponse(e.w, pkg.ContentType.JSON, "[]", http.StatusOK)
		return nil
	}
	_, err := e.w.Write([]byte("]"))
	return err
}

func (e *jsonExporter) started() bool { return e.count > 0 }
func (e *jsonExporter) rows() int     { return e.count }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
