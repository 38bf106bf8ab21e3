package paging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name             string
		page, size       int
		wantPage, wantSz int
	}{
		{"defaults", 0, 0, 1, 20},
		{"negative", -3, -1, 1, 20},
		{"clamped", 2, 500, 2, 100},
		{"kept", 3, 10, 3, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, s := Normalize(tt.page, tt.size, 20, 100)
			assert.Equal(t, tt.wantPage, p)
			assert.Equal(t, tt.wantSz, s)
		})
	}
}

func TestSlice(t *testing.T) {
	records := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{1, 2}, Slice(records, 1, 2))
	assert.Equal(t, []int{5}, Slice(records, 3, 2))
	assert.Equal(t, []int{}, Slice(records, 4, 2))
}
