package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello World":                         "hello-world",
		"  Luxury Villa in Marbella!  ":       "luxury-villa-in-marbella",
		"5 Tips -- for   First-Time Buyers":   "5-tips-for-first-time-buyers",
		"Price: $1,200,000 (negotiable)":      "price-1200000-negotiable",
		"snake_case_title":                    "snake-case-title",
		"---":                                 "",
		"Čačak Apartments":                    "aak-apartments",
		"":                                    "",
	}
	for in, expected := range cases {
		assert.Equal(t, expected, Slugify(in), in)
	}
}
