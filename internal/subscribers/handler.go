package subscribers

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

type subscribeResponse struct {
	Message string `json:"message"`
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
	router.HandleFunc("/subscribe", handler.handleSubscribe).Methods("POST").Name("subscribe")
	router.HandleFunc("/subscribers", handler.handleList).Methods("GET").Name("subscribers-list")
}

func (handler *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "subscribersHandler.subscribe")
	defer span.End()

	var in SubscribeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.Debugf("subscribe, decode body: %s", err)
		apperr.WriteHTTP(w, apperr.Validation("invalid request body"))
		return
	}

	if _, err := handler.service.Subscribe(ctx, in); err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteJSONResponse(w, http.StatusOK, subscribeResponse{Message: "Subscription successful"})
}

func (handler *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "subscribersHandler.list")
	defer span.End()

	list, err := handler.service.List(ctx, auth.IdentityFromContext(ctx))
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteActionOK(w, list)
}
