package queryparams

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateClamps(t *testing.T) {
	p := ListParams{Page: -2, PerPage: 1000, OrderBy: "SIDEWAYS"}
	p.Validate()
	assert.Equal(t, DefaultPage, p.Page)
	assert.Equal(t, MaxPerPage, p.PerPage)
	assert.Equal(t, DefaultOrderBy, p.OrderBy)

	p = ListParams{Page: 3, PerPage: 0, OrderBy: " ASC "}
	p.Validate()
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, DefaultPerPage, p.PerPage)
	assert.Equal(t, "asc", p.OrderBy)
}

func TestCalculateOffset(t *testing.T) {
	assert.Equal(t, 0, ListParams{Page: 1, PerPage: 20}.CalculateOffset())
	assert.Equal(t, 40, ListParams{Page: 3, PerPage: 20}.CalculateOffset())
	assert.Equal(t, 0, ListParams{Page: 0, PerPage: 20}.CalculateOffset())
}

func TestCalculateTotalPages(t *testing.T) {
	assert.Equal(t, 0, CalculateTotalPages(0, 20))
	assert.Equal(t, 1, CalculateTotalPages(20, 20))
	assert.Equal(t, 2, CalculateTotalPages(21, 20))
	assert.Equal(t, 0, CalculateTotalPages(5, 0))
}

func TestNewPaginatedResult(t *testing.T) {
	r := NewPaginatedResult([]int{1, 2}, 45, DefaultListParams("updated_at"))
	assert.Equal(t, 3, r.Meta.TotalPages)
	assert.Equal(t, int64(45), r.Meta.TotalItems)
	assert.Equal(t, []int{1, 2}, r.Data)
}
