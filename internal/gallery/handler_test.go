package gallery

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/2beens/realestate/internal/auth"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupGalleryRouter(t *testing.T) (*mux.Router, *repoMock, *testUploader) {
	t.Helper()
	repo := NewRepoMock()
	uploader := &testUploader{}
	r := mux.NewRouter()
	NewHandler(NewService(repo, uploader)).SetupRoutes(r.PathPrefix("/api").Subrouter())
	return r, repo, uploader
}

func galleryRequest(r http.Handler, actor *auth.Identity, req *http.Request) *httptest.ResponseRecorder {
	req = req.WithContext(auth.WithIdentity(req.Context(), actor))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestHandler_Flow(t *testing.T) {
	r, _, _ := setupGalleryRouter(t)

	rr := galleryRequest(r, testAdmin, httptest.NewRequest(http.MethodPost, "/api/gallery",
		strings.NewReader(`{"title":"Lake House","category":"house","imageUrl":"https://img.example.com/lake.jpg","published":true}`)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = galleryRequest(r, testAdmin, httptest.NewRequest(http.MethodPost, "/api/gallery",
		strings.NewReader(`{"title":"No Image","category":"house"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"success":false,"error":"image is required"}`, rr.Body.String())

	rr = galleryRequest(r, nil, httptest.NewRequest(http.MethodGet, "/api/gallery?category=house", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var page ItemsPage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Lake House", page.Items[0].Title)
	assert.Equal(t, 1, page.Pagination.TotalPages)

	rr = galleryRequest(r, nil, httptest.NewRequest(http.MethodGet, "/api/gallery/1", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = galleryRequest(r, nil, httptest.NewRequest(http.MethodGet, "/api/gallery/2", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = galleryRequest(r, testAdmin, httptest.NewRequest(http.MethodPut, "/api/gallery/1",
		strings.NewReader(`{"title":"Lake House","category":"cabin","published":true}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"category":"cabin"`)
	assert.Contains(t, rr.Body.String(), "lake.jpg")

	rr = galleryRequest(r, nil, httptest.NewRequest(http.MethodGet, "/api/gallery/admin/all", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = galleryRequest(r, testAdmin, httptest.NewRequest(http.MethodDelete, "/api/gallery/1", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true}`, rr.Body.String())
}

func TestHandler_MultipartCreate(t *testing.T) {
	r, repo, uploader := setupGalleryRouter(t)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("title", "Rooftop"))
	require.NoError(t, form.WriteField("category", "apartment"))
	require.NoError(t, form.WriteField("published", "false"))
	file, err := form.CreateFormFile("image", "roof.png")
	require.NoError(t, err)
	_, err = file.Write([]byte("png"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/gallery", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rr := galleryRequest(r, testAdmin, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 1, uploader.uploads)

	item, err := repo.Get(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/gallery/items/roof.png", item.ImageURL)
	assert.False(t, item.Published)
}
