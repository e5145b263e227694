package visitor

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/2beens/realestate/internal/apperr"
	"github.com/2beens/realestate/internal/geoip"
	"github.com/2beens/realestate/internal/telemetry/metrics"
	"github.com/2beens/realestate/internal/telemetry/tracing"
	"github.com/2beens/realestate/internal/validation"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type GeoLocator interface {
	Locate(ctx context.Context, ip string) (*geoip.Location, error)
}

type Recorder struct {
	repo    pageViewsRepo
	geo     GeoLocator
	metrics *metrics.Manager
}

// NewRecorder returns a page view recorder. geo may be nil, leaving country
// and city empty.
func NewRecorder(repo pageViewsRepo, geo GeoLocator, metricsManager *metrics.Manager) *Recorder {
	return &Recorder{
		repo:    repo,
		geo:     geo,
		metrics: metricsManager,
	}
}

// RecordPageView validates the input, classifies the client and appends one
// page view row. Invalid input is rejected before anything is written.
// Text fields are stored as valid UTF-8, with bad bytes replaced.
func (r *Recorder) RecordPageView(ctx context.Context, in PageViewInput) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "visitorRecorder.recordPageView")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	in = in.sanitized()
	if err := validation.Struct(in); err != nil {
		return err
	}
	span.SetAttributes(attribute.String("page_view.path", in.Path))

	client := ParseUserAgent(in.UserAgent)
	pv := &PageView{
		Path:            in.Path,
		UserAgent:       in.UserAgent,
		IPAddress:       in.IP,
		Browser:         client.BrowserName,
		BrowserVersion:  client.BrowserVersion,
		OperatingSystem: client.OperatingSystem(),
		DeviceType:      string(client.DeviceType),
		Referer:         in.Referer,
		SessionID:       in.SessionID,
	}

	if r.geo != nil {
		loc, err := r.geo.Locate(ctx, in.IP)
		if err != nil {
			log.Debugf("record page view: geo lookup for %s: %s", in.IP, err)
		} else if loc != nil {
			pv.Country = nonEmpty(loc.Country)
			pv.City = nonEmpty(loc.City)
		}
	}

	if err := r.repo.Add(ctx, pv); err != nil {
		return apperr.Internal(err)
	}

	if r.metrics != nil {
		r.metrics.CounterPageViews.Inc()
	}
	return nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (in PageViewInput) sanitized() PageViewInput {
	in.Path = validUTF8(in.Path)
	in.UserAgent = validUTF8(in.UserAgent)
	in.IP = validUTF8(in.IP)
	in.Referer = validUTF8(in.Referer)
	in.SessionID = validUTF8(in.SessionID)
	return in
}

func validUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, string(utf8.RuneError))
}
