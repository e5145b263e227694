package blog

import (
	"time"

	"github.com/2beens/realestate/pkg"
)

const (
	defaultPageLimit   = 10
	maxPageLimit       = 100
	defaultRecentLimit = 5
)

// Topics counted by the categories endpoint. Posts are not tagged, a post
// belongs to every topic it mentions.
var categoryNames = []string{
	"Properti",
	"Investasi",
	"Tips & Trik",
	"Desain Interior",
	"Berita Properti",
	"KPR",
}

type Category struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Post struct {
	ID       int     `json:"id"`
	Title    string  `json:"title"`
	Slug     string  `json:"slug"`
	Excerpt  string  `json:"excerpt"`
	Content  string  `json:"content,omitempty"`
	ImageURL *string `json:"imageUrl"`
	AuthorID *int    `json:"authorId,omitempty"`
	// resolved from users, empty once the author is deleted
	AuthorName string    `json:"authorName"`
	Published  bool      `json:"published"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// PostInput is the body of create and update requests. An empty slug is
// derived from the title.
type PostInput struct {
	Title     string `json:"title" validate:"required"`
	Slug      string `json:"slug" validate:"required"`
	Excerpt   string `json:"excerpt" validate:"required"`
	Content   string `json:"content" validate:"required"`
	ImageURL  string `json:"imageUrl" validate:"omitempty,url"`
	AuthorID  int    `json:"authorId"`
	Published bool   `json:"published"`
}

type ListParams struct {
	Page   int
	Limit  int
	Search string
}

func (p ListParams) normalized() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

func (p ListParams) offset() int {
	return (p.Page - 1) * p.Limit
}

type PostsPage struct {
	Posts      []Post         `json:"posts"`
	Pagination pkg.Pagination `json:"pagination"`
}
