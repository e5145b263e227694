package gallery

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/2beens/realestate/internal/apperr"
	"github.com/2beens/realestate/internal/auth"
	"github.com/2beens/realestate/internal/storage"
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
	galleryRouter := router.PathPrefix("/gallery").Subrouter()
	galleryRouter.HandleFunc("", handler.handleList).Methods("GET").Name("gallery-list")
	galleryRouter.HandleFunc("", handler.handleCreate).Methods("POST").Name("gallery-create")
	galleryRouter.HandleFunc("/admin/all", handler.handleAll).Methods("GET").Name("gallery-admin-all")
	galleryRouter.HandleFunc("/{id:[0-9]+}", handler.handleGet).Methods("GET").Name("gallery-get")
	galleryRouter.HandleFunc("/{id:[0-9]+}", handler.handleUpdate).Methods("PUT").Name("gallery-update")
	galleryRouter.HandleFunc("/{id:[0-9]+}", handler.handleDelete).Methods("DELETE").Name("gallery-delete")
}

func (handler *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "galleryHandler.list")
	defer span.End()

	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	limit, _ := strconv.Atoi(query.Get("limit"))

	itemsPage, err := handler.service.List(ctx, ListParams{
		Page:     page,
		Limit:    limit,
		Category: query.Get("category"),
	})
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteJSONResponse(w, http.StatusOK, itemsPage)
}

func (handler *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "galleryHandler.get")
	defer span.End()

	id, err := pathID(r)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}

	item, err := handler.service.Get(ctx, auth.IdentityFromContext(ctx), id)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteJSONResponse(w, http.StatusOK, item)
}

func (handler *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "galleryHandler.all")
	defer span.End()

	items, err := handler.service.All(ctx, auth.IdentityFromContext(ctx))
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteActionOK(w, items)
}

func (handler *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "galleryHandler.create")
	defer span.End()

	in, image, err := readItemInput(r)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}

	item, err := handler.service.Create(ctx, auth.IdentityFromContext(ctx), in, image)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteActionOK(w, item)
}

func (handler *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "galleryHandler.update")
	defer span.End()

	id, err := pathID(r)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	in, image, err := readItemInput(r)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}

	item, err := handler.service.Update(ctx, auth.IdentityFromContext(ctx), id, in, image)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteActionOK(w, item)
}

func (handler *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "galleryHandler.delete")
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

func readItemInput(r *http.Request) (ItemInput, *storage.Image, error) {
	var in ItemInput
	if !storage.IsMultipartForm(r) {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			log.Debugf("gallery item, decode body: %s", err)
			return in, nil, apperr.Validation("invalid request body")
		}
		return in, nil, nil
	}

	image, err := storage.ReadImageForm(r, "image")
	if err != nil {
		log.Debugf("gallery item, read form: %s", err)
		return in, nil, apperr.Validation("invalid form data")
	}
	return ItemInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		ImageURL:    r.FormValue("imageUrl"),
		Published:   r.FormValue("published") == "true",
	}, image, nil
}

func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid id")
	}
	return id, nil
}
