package testimonials

import (
	"time"
)

const (
	defaultPublicLimit  = 10
	defaultPendingLimit = 5
	maxLimit            = 100
)

type Testimonial struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Rating    int       `json:"rating"`
	ImageURL  *string   `json:"imageUrl"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"createdAt"`
}

// SubmitInput is a public submission. It never carries the approval flag.
type SubmitInput struct {
	Name     string `json:"name" validate:"required,max=200"`
	Role     string `json:"role" validate:"max=200"`
	Content  string `json:"content" validate:"required,max=5000"`
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	ImageURL string `json:"imageUrl" validate:"omitempty,url"`
}

// Filter selects testimonials by approval state, nil Approved means any.
type Filter struct {
	Approved *bool
	Limit    int
}
