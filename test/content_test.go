//go:build integration_test || all_tests

package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/2beens/realestate/internal/blog"
	"github.com/2beens/realestate/internal/settings"
	"github.com/2beens/realestate/internal/testimonials"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type actionResult[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

func (s *IntegrationTestSuite) TestBlogFlow() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	admin := newClient(t)
	admin.login(ctx, testAdminEmail, testAdminPassword)
	anon := newClient(t)

	status, _, _ := anon.do(ctx, http.MethodPost, "/api/blog", map[string]any{
		"title": "x", "slug": "x", "excerpt": "x", "content": "x",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	var created []blog.Post
	for i, published := range []bool{true, true, false} {
		status, body, _ := admin.do(ctx, http.MethodPost, "/api/blog", map[string]any{
			"title":     fmt.Sprintf("Tips KPR Rumah Pertama %d", i),
			"excerpt":   "Langkah demi langkah",
			"content":   "Isi artikel tentang KPR",
			"published": published,
		})
		require.Equal(t, http.StatusOK, status, string(body))

		var res actionResult[blog.Post]
		require.NoError(t, json.Unmarshal(body, &res))
		require.True(t, res.Success)
		assert.Equal(t, fmt.Sprintf("tips-kpr-rumah-pertama-%d", i), res.Data.Slug)
		created = append(created, res.Data)
	}

	status, body, _ := anon.do(ctx, http.MethodGet, "/api/blog?limit=1&search=rumah", nil)
	require.Equal(t, http.StatusOK, status)
	var page blog.PostsPage
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page.Posts, 1)
	assert.Equal(t, 2, page.Pagination.Total, "drafts are not listed")
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.Empty(t, page.Posts[0].Content)

	status, _, _ = anon.do(ctx, http.MethodGet, "/api/blog/"+created[2].Slug, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, body, _ = anon.do(ctx, http.MethodGet, "/api/blog/"+created[0].Slug, nil)
	require.Equal(t, http.StatusOK, status)
	var post blog.Post
	require.NoError(t, json.Unmarshal(body, &post))
	assert.Equal(t, "admin", post.AuthorName)

	status, body, _ = anon.do(ctx, http.MethodGet, "/api/blog/categories", nil)
	require.Equal(t, http.StatusOK, status)
	var categories []blog.Category
	require.NoError(t, json.Unmarshal(body, &categories))
	for _, c := range categories {
		if c.Name == "KPR" {
			assert.Equal(t, 2, c.Count)
		}
	}

	status, body, _ = admin.do(ctx, http.MethodPost, "/api/blog", map[string]any{
		"title": "Tips KPR Rumah Pertama 0", "excerpt": "e", "content": "c",
	})
	assert.Equal(t, http.StatusConflict, status, string(body))

	status, _, _ = admin.do(ctx, http.MethodDelete, fmt.Sprintf("/api/blog/%d", created[1].ID), nil)
	assert.Equal(t, http.StatusOK, status)
	status, _, _ = admin.do(ctx, http.MethodDelete, fmt.Sprintf("/api/blog/%d", created[1].ID), nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func (s *IntegrationTestSuite) TestTestimonialModeration() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	anon := newClient(t)
	status, body, _ := anon.do(ctx, http.MethodPost, "/api/testimonials", map[string]any{
		"name": "Budi", "content": "Pelayanan cepat", "rating": 5, "approved": true,
	})
	require.Equal(t, http.StatusOK, status, string(body))

	status, _, _ = anon.do(ctx, http.MethodPost, "/api/testimonials", map[string]any{
		"name": "Budi", "content": "Pelayanan cepat", "rating": 6,
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body, _ = anon.do(ctx, http.MethodGet, "/api/testimonials", nil)
	require.Equal(t, http.StatusOK, status)
	var approved []testimonials.Testimonial
	require.NoError(t, json.Unmarshal(body, &approved))
	assert.Empty(t, approved, "submissions wait for moderation")

	admin := newClient(t)
	admin.login(ctx, testAdminEmail, testAdminPassword)
	status, body, _ = admin.do(ctx, http.MethodGet, "/api/testimonials/pending", nil)
	require.Equal(t, http.StatusOK, status)
	var pending []testimonials.Testimonial
	require.NoError(t, json.Unmarshal(body, &pending))
	require.Len(t, pending, 1)

	status, _, _ = admin.do(ctx, http.MethodPost, fmt.Sprintf("/api/testimonials/%d/approve", pending[0].ID), nil)
	require.Equal(t, http.StatusOK, status)

	status, body, _ = anon.do(ctx, http.MethodGet, "/api/testimonials", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &approved))
	require.Len(t, approved, 1)
	assert.Equal(t, "Budi", approved[0].Name)
}

func (s *IntegrationTestSuite) TestSiteSettingsAndSubscribe() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	anon := newClient(t)
	status, body, _ := anon.do(ctx, http.MethodGet, "/api/settings/site", nil)
	require.Equal(t, http.StatusOK, status)
	var site struct {
		Settings settings.SiteSettings `json:"settings"`
	}
	require.NoError(t, json.Unmarshal(body, &site))
	assert.Equal(t, "Real Estate", site.Settings.SiteName)

	status, _, _ = anon.do(ctx, http.MethodPut, "/api/settings/site", map[string]any{
		"settings": map[string]string{"site_name": "Hijacked"},
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	admin := newClient(t)
	admin.login(ctx, testAdminEmail, testAdminPassword)
	status, body, _ = admin.do(ctx, http.MethodPut, "/api/settings/site", map[string]any{
		"settings": map[string]string{"site_name": "Rumah Impian", "contact_email": "info@rumah.test"},
	})
	require.Equal(t, http.StatusOK, status, string(body))
	require.NoError(t, json.Unmarshal(body, &site))
	assert.Equal(t, "Rumah Impian", site.Settings.SiteName)
	assert.Equal(t, "Find your dream home", site.Settings.SiteDescription, "absent fields are kept")

	status, body, _ = anon.do(ctx, http.MethodPost, "/api/subscribe", map[string]string{"email": "Buyer@Rumah.test"})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.JSONEq(t, `{"message":"Subscription successful"}`, string(body))

	status, body, _ = anon.do(ctx, http.MethodPost, "/api/subscribe", map[string]string{"email": "buyer@rumah.test"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, string(body), "Email already subscribed")
}
