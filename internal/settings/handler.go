package settings

import (
	"encoding/json"
	"net/http"

	"github.com/2beens/realestate/internal/apperr"
	"github.com/2beens/realestate/internal/auth"
	"github.com/2beens/realestate/internal/telemetry/tracing"
	"github.com/2beens/realestate/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type siteSettingsResponse struct {
	Settings *SiteSettings `json:"settings"`
}

type updateSiteSettingsRequest struct {
	Settings SiteSettingsUpdate `json:"settings"`
}

type apiKeyResponse struct {
	Success bool   `json:"success"`
	APIKey  string `json:"apiKey"`
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
	settingsRouter := router.PathPrefix("/settings").Subrouter()
	settingsRouter.HandleFunc("/site", handler.handleGetSite).Methods("GET").Name("settings-site-get")
	settingsRouter.HandleFunc("/site", handler.handleUpdateSite).Methods("PUT").Name("settings-site-update")
	settingsRouter.HandleFunc("/api-key/regenerate", handler.handleRegenerateAPIKey).Methods("POST").Name("settings-api-key-regenerate")
}

func (handler *Handler) handleGetSite(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "settingsHandler.getSite")
	defer span.End()

	site, err := handler.service.Site(ctx)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteJSONResponse(w, http.StatusOK, siteSettingsResponse{Settings: site})
}

func (handler *Handler) handleUpdateSite(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "settingsHandler.updateSite")
	defer span.End()

	var req updateSiteSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Debugf("update site settings, decode body: %s", err)
		apperr.WriteHTTP(w, apperr.Validation("invalid request body"))
		return
	}

	site, err := handler.service.UpdateSite(ctx, auth.IdentityFromContext(ctx), req.Settings)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteJSONResponse(w, http.StatusOK, siteSettingsResponse{Settings: site})
}

func (handler *Handler) handleRegenerateAPIKey(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "settingsHandler.regenerateAPIKey")
	defer span.End()

	key, err := handler.service.RegenerateAPIKey(ctx, auth.IdentityFromContext(ctx))
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteJSONResponse(w, http.StatusOK, apiKeyResponse{Success: true, APIKey: key})
}
