package users

import (
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
	usersRouter := router.PathPrefix("/users").Subrouter()
	usersRouter.HandleFunc("", handler.handleList).Methods("GET").Name("users-list")
	usersRouter.HandleFunc("", handler.handleCreate).Methods("POST").Name("users-create")
	usersRouter.HandleFunc("/{id:[0-9]+}", handler.handleGet).Methods("GET").Name("users-get")
	usersRouter.HandleFunc("/{id:[0-9]+}", handler.handleUpdate).Methods("PUT").Name("users-update")
	usersRouter.HandleFunc("/{id:[0-9]+}", handler.handleDelete).Methods("DELETE").Name("users-delete")
}

func (handler *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "usersHandler.list")
	defer span.End()

	users, err := handler.service.List(ctx, auth.IdentityFromContext(ctx))
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteActionOK(w, users)
}

func (handler *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "usersHandler.get")
	defer span.End()

	id, err := pathID(r)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}

	user, err := handler.service.Get(ctx, auth.IdentityFromContext(ctx), id)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteActionOK(w, user)
}

func (handler *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "usersHandler.create")
	defer span.End()

	var in CreateUserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.Debugf("create user, decode body: %s", err)
		apperr.WriteHTTP(w, apperr.Validation("invalid request body"))
		return
	}

	user, err := handler.service.Create(ctx, auth.IdentityFromContext(ctx), in)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteActionOK(w, user)
}

func (handler *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "usersHandler.update")
	defer span.End()

	id, err := pathID(r)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}

	var in UpdateUserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.Debugf("update user, decode body: %s", err)
		apperr.WriteHTTP(w, apperr.Validation("invalid request body"))
		return
	}

	user, err := handler.service.Update(ctx, auth.IdentityFromContext(ctx), id, in)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteActionOK(w, user)
}

func (handler *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "usersHandler.delete")
	defer span.End()

	id, err := pathID(r)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}

	if err := handler.service.Delete(ctx, auth.IdentityFromContext(ctx), id); err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteActionOK(w, nil)
}

func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid id")
	}
	return id, nil
}
