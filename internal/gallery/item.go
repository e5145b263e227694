package gallery

import (
	"time"

	"github.com/2beens/realestate/pkg"
)

const (
	defaultPageLimit = 12
	maxPageLimit     = 100
)

type Item struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"imageUrl"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ItemInput struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Category    string `json:"category" validate:"required"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,url"`
	Published   bool   `json:"published"`
}

type ListParams struct {
	Page     int
	Limit    int
	Category string
}

func (p ListParams) normalized() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > maxPageLimit {
		p.Limit = defaultPageLimit
	}
	return p
}

type ItemsPage struct {
	Items      []Item         `json:"items"`
	Pagination pkg.Pagination `json:"pagination"`
}
