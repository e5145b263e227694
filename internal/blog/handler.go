package blog

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
	blogRouter := router.PathPrefix("/blog").Subrouter()
	blogRouter.HandleFunc("", handler.handleList).Methods("GET").Name("blog-list")
	blogRouter.HandleFunc("", handler.handleCreate).Methods("POST").Name("blog-create")
	blogRouter.HandleFunc("/recent", handler.handleRecent).Methods("GET").Name("blog-recent")
	blogRouter.HandleFunc("/categories", handler.handleCategories).Methods("GET").Name("blog-categories")
	blogRouter.HandleFunc("/admin/all", handler.handleAll).Methods("GET").Name("blog-admin-all")
	blogRouter.HandleFunc("/{id:[0-9]+}", handler.handleUpdate).Methods("PUT").Name("blog-update")
	blogRouter.HandleFunc("/{id:[0-9]+}", handler.handleDelete).Methods("DELETE").Name("blog-delete")
	blogRouter.HandleFunc("/{slug}", handler.handleGetBySlug).Methods("GET").Name("blog-get")
}

func (handler *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "blogHandler.list")
	defer span.End()

	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	limit, _ := strconv.Atoi(query.Get("limit"))

	postsPage, err := handler.service.List(ctx, ListParams{
		Page:   page,
		Limit:  limit,
		Search: query.Get("search"),
	})
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteJSONResponse(w, http.StatusOK, postsPage)
}

func (handler *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "blogHandler.recent")
	defer span.End()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	posts, err := handler.service.Recent(ctx, limit)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteJSONResponse(w, http.StatusOK, posts)
}

func (handler *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "blogHandler.categories")
	defer span.End()

	categories, err := handler.service.Categories(ctx)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteJSONResponse(w, http.StatusOK, categories)
}

func (handler *Handler) handleGetBySlug(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "blogHandler.getBySlug")
	defer span.End()

	post, err := handler.service.BySlug(ctx, mux.Vars(r)["slug"])
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteJSONResponse(w, http.StatusOK, post)
}

func (handler *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "blogHandler.all")
	defer span.End()

	posts, err := handler.service.All(ctx, auth.IdentityFromContext(ctx))
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteActionOK(w, posts)
}

func (handler *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "blogHandler.create")
	defer span.End()

	in, image, err := readPostInput(r)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}

	post, err := handler.service.Create(ctx, auth.IdentityFromContext(ctx), in, image)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteActionOK(w, post)
}

func (handler *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "blogHandler.update")
	defer span.End()

	id, err := pathID(r)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}

	in, image, err := readPostInput(r)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}

	post, err := handler.service.Update(ctx, auth.IdentityFromContext(ctx), id, in, image)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	pkg.WriteActionOK(w, post)
}

func (handler *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "blogHandler.delete")
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

// readPostInput accepts a json body or a multipart form with an optional
// image file.
func readPostInput(r *http.Request) (PostInput, *storage.Image, error) {
	var in PostInput
	if !storage.IsMultipartForm(r) {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			log.Debugf("blog post, decode body: %s", err)
			return in, nil, apperr.Validation("invalid request body")
		}
		return in, nil, nil
	}

	image, err := storage.ReadImageForm(r, "image")
	if err != nil {
		log.Debugf("blog post, read form: %s", err)
		return in, nil, apperr.Validation("invalid form data")
	}

	in = PostInput{
		Title:     r.FormValue("title"),
		Slug:      r.FormValue("slug"),
		Excerpt:   r.FormValue("excerpt"),
		Content:   r.FormValue("content"),
		ImageURL:  r.FormValue("imageUrl"),
		Published: r.FormValue("published") == "true",
	}
	if authorID := r.FormValue("authorId"); authorID != "" {
		if in.AuthorID, err = strconv.Atoi(authorID); err != nil {
			return in, nil, apperr.Validation("invalid authorId")
		}
	}
	return in, image, nil
}

func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid id")
	}
	return id, nil
}
