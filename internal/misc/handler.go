package misc

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/2beens/realestate/internal/apperr"
	"github.com/2beens/realestate/internal/auth"
	"github.com/2beens/realestate/internal/geoip"
	"github.com/2beens/realestate/internal/middleware"
	"github.com/2beens/realestate/internal/telemetry/metrics"
	"github.com/2beens/realestate/internal/telemetry/tracing"
	"github.com/2beens/realestate/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const loginRateLimitPerMin = 15

type sessionService interface {
	Login(ctx context.Context, email, password string) (*auth.Identity, string, error)
	Logout(ctx context.Context, token string)
	CurrentUser(ctx context.Context, token string) *auth.Identity
	TokenTTL() int
}

type ipLocator interface {
	Locate(ctx context.Context, ip string) (*geoip.Location, error)
}

type Handler struct {
	geoIp          ipLocator
	versionInfo    string
	sessions       sessionService
	secureCookies  bool
	metricsManager *metrics.Manager
}

func NewHandler(
	geoIp ipLocator,
	versionInfo string,
	sessions sessionService,
	secureCookies bool,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		geoIp:          geoIp,
		versionInfo:    versionInfo,
		sessions:       sessions,
		secureCookies:  secureCookies,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(
	mainRouter *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	loginAllowedPerMin int,
) {
	mainRouter.HandleFunc("/", handler.handleRoot).Methods("GET", "POST", "OPTIONS").Name("root")
	mainRouter.HandleFunc("/whereami", handler.handleWhereAmI).Methods("GET").Name("whereami")
	mainRouter.HandleFunc("/myip", handler.handleGetMyIp).Methods("GET").Name("myip")
	mainRouter.HandleFunc("/version", handler.handleGetVersionInfo).Methods("GET").Name("version")

	// pages guarded by the route gate
	mainRouter.HandleFunc(middleware.LoginPath, handler.handleLoginPage).Methods("GET").Name("login-page")
	mainRouter.HandleFunc(middleware.DashboardPath, handler.handleDashboardPage).Methods("GET").Name("dashboard-page")
	mainRouter.PathPrefix(middleware.DashboardPath + "/").HandlerFunc(handler.handleDashboardPage).Methods("GET").Name("dashboard-subpage")

	if loginAllowedPerMin <= 0 {
		loginAllowedPerMin = loginRateLimitPerMin
	}

	authRouter := mainRouter.PathPrefix("/api/auth").Subrouter()
	authRouter.Handle(
		"/login",
		middleware.RateLimit(rateLimiter, "login", loginAllowedPerMin, handler.metricsManager)(
			http.HandlerFunc(handler.handleLogin),
		),
	).Methods("POST", "OPTIONS").Name("login")
	authRouter.HandleFunc("/logout", handler.handleLogout).Methods("POST", "OPTIONS").Name("logout")
	authRouter.HandleFunc("/me", handler.handleMe).Methods("GET").Name("me")
}

func (handler *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteResponse(w, pkg.ContentType.Text, "I'm OK, thanks ;)", http.StatusOK)
}

func (handler *Handler) handleWhereAmI(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.whereAmI")
	defer span.End()

	userIP := pkg.ReadUserIP(r)
	span.SetAttributes(attribute.String("user.ip", userIP))

	loc, err := handler.geoIp.Locate(ctx, userIP)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Errorf("error getting geo ip info: %s", err)
		http.Error(w, "geo ip info error", http.StatusInternalServerError)
		return
	}
	if loc == nil {
		loc = &geoip.Location{}
	}

	span.SetAttributes(attribute.String("user.city", loc.City))
	span.SetAttributes(attribute.String("user.country", loc.Country))
	pkg.WriteJSONResponse(w, http.StatusOK, loc)
}

func (handler *Handler) handleGetMyIp(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.getMyIp")
	defer span.End()

	ip := pkg.ReadUserIP(r)
	span.SetAttributes(attribute.String("user.ip", ip))
	pkg.WriteResponse(w, pkg.ContentType.Text, ip, http.StatusOK)
}

func (handler *Handler) handleGetVersionInfo(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteResponse(w, pkg.ContentType.Text, handler.versionInfo, http.StatusOK)
}

type loginResponse struct {
	Success bool           `json:"success"`
	User    *auth.Identity `json:"user,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.login")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var loginReq struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), pkg.ContentType.JSON) {
		if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
			log.Debugf("login, unmarshal json params: %s", err)
			apperr.WriteHTTP(w, apperr.Validation("invalid request body"))
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			log.Debugf("login, parse form: %s", err)
			apperr.WriteHTTP(w, apperr.Validation("invalid request body"))
			return
		}
		loginReq.Email = r.Form.Get("email")
		loginReq.Password = r.Form.Get("password")
	}

	identity, token, err := handler.sessions.Login(ctx, loginReq.Email, loginReq.Password)
	if err != nil {
		handler.countLogin("failed")
		span.SetStatus(codes.Error, "login failed")
		if apperr.Is(err, apperr.KindInternal) {
			log.Errorf("login: %s", err)
		} else {
			log.Tracef("failed login attempt: %s", apperr.PublicMessage(err))
		}
		pkg.WriteJSONResponse(w, apperr.KindOf(err).HTTPStatus(), loginResponse{
			Error: apperr.PublicMessage(err),
		})
		return
	}

	handler.countLogin("ok")
	auth.SetSessionCookie(w, token, handler.sessions.TokenTTL(), handler.secureCookies)
	log.Tracef("login success for user %d", identity.ID)
	pkg.WriteJSONResponse(w, http.StatusOK, loginResponse{Success: true, User: identity})
}

func (handler *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.logout")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	handler.sessions.Logout(ctx, auth.TokenFromRequest(r))
	auth.ClearSessionCookie(w, handler.secureCookies)
	pkg.WriteJSONResponse(w, http.StatusOK, pkg.ActionResult{Success: true})
}

func (handler *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity := handler.currentIdentity(r)
	if identity == nil {
		apperr.WriteHTTP(w, apperr.Unauthorized())
		return
	}
	pkg.WriteJSONResponse(w, http.StatusOK, identity)
}

func (handler *Handler) handleLoginPage(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteJSONResponse(w, http.StatusOK, map[string]string{"page": "login"})
}

func (handler *Handler) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	identity := handler.currentIdentity(r)
	if identity == nil {
		http.Redirect(w, r, middleware.LoginPath, http.StatusFound)
		return
	}
	pkg.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"page": r.URL.Path,
		"user": identity,
	})
}

// currentIdentity prefers the identity resolved by the route gate and only
// verifies the cookie itself when the handler is mounted without the gate.
func (handler *Handler) currentIdentity(r *http.Request) *auth.Identity {
	if identity := auth.IdentityFromContext(r.Context()); identity != nil {
		return identity
	}
	return handler.sessions.CurrentUser(r.Context(), auth.TokenFromRequest(r))
}

func (handler *Handler) countLogin(result string) {
	if handler.metricsManager != nil {
		handler.metricsManager.CounterLogins.WithLabelValues(result).Inc()
	}
}
