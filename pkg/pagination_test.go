package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	assert.Equal(t, Pagination{Total: 11, Page: 1, Limit: 5, TotalPages: 3}, NewPagination(11, 1, 5))
	assert.Equal(t, Pagination{Total: 10, Page: 2, Limit: 5, TotalPages: 2}, NewPagination(10, 2, 5))
	assert.Equal(t, Pagination{Total: 0, Page: 1, Limit: 12, TotalPages: 0}, NewPagination(0, 1, 12))
	assert.Equal(t, 0, NewPagination(3, 1, 0).TotalPages)
}
