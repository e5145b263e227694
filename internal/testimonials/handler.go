package testimonials

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/2beens/realestate/internal/apperr"
	"github.com/2beens/realestate/internal/auth"
	"github.com/2beens/realestate/internal/telemetry/tracing"
	"github.com/2beens/realestate/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	testimonialsRouter := router.PathPrefix("/testimonials").Subrouter()
	testimonialsRouter.HandleFunc("", handler.handleApproved).Methods("GET").Name("testimonials-approved")
	testimonialsRouter.HandleFunc("", handler.handleSubmit).Methods("POST").Name("testimonials-submit")
	testimonialsRouter.HandleFunc("/pending", handler.handlePending).Methods("GET").Name("testimonials-pending")
	testimonialsRouter.HandleFunc("/all", handler.handleAll).Methods("GET").Name("testimonials-all")
	testimonialsRouter.HandleFunc("/{id:[0-9]+}/approve", handler.handleApprove).Methods("POST").Name("testimonials-approve")
	testimonialsRouter.HandleFunc("/{id:[0-9]+}/reject", handler.handleReject).Methods("POST").Name("testimonials-reject")
	testimonialsRouter.HandleFunc("/{id:[0-9]+}", handler.handleDelete).Methods("DELETE").Name("testimonials-delete")
}

func (handler *Handler) handleApproved(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "testimonialsHandler.approved")
	defer span.End()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := handler.service.Approved(ctx, limit)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteJSONResponse(w, http.StatusOK, list)
}

func (handler *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "testimonialsHandler.submit")
	defer span.End()

	var in SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.Debugf("submit testimonial, decode body: %s", err)
		apperr.WriteHTTP(w, apperr.Validation("invalid request body"))
		return
	}

	if _, err := handler.service.Submit(ctx, in); err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteActionOK(w, nil)
}

func (handler *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "testimonialsHandler.pending")
	defer span.End()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := handler.service.Pending(ctx, auth.IdentityFromContext(ctx), limit)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteJSONResponse(w, http.StatusOK, list)
}

func (handler *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "testimonialsHandler.all")
	defer span.End()

	list, err := handler.service.All(ctx, auth.IdentityFromContext(ctx))
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteActionOK(w, list)
}

func (handler *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	handler.moderate(w, r, "testimonialsHandler.approve", handler.service.Approve)
}

func (handler *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	handler.moderate(w, r, "testimonialsHandler.reject", handler.service.Reject)
}

func (handler *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	handler.moderate(w, r, "testimonialsHandler.delete", handler.service.Delete)
}

type moderationAction func(ctx context.Context, actor *auth.Identity, id int) error

func (handler *Handler) moderate(w http.ResponseWriter, r *http.Request, spanName string, action moderationAction) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), spanName)
	defer span.End()

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		apperr.WriteHTTP(w, apperr.Validation("invalid id"))
		return
	}

	if err := action(ctx, auth.IdentityFromContext(ctx), id); err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteActionOK(w, nil)
}
