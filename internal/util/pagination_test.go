package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	cases := []struct {
		page, size         int
		wantOffset, wantLim int
	}{
		{1, 10, 0, 10},
		{3, 10, 20, 10},
		{0, 0, 0, DefaultPageSize},
		{-2, 500, 0, MaxPageSize},
	}
	for _, tc := range cases {
		off, lim := Calculate(tc.page, tc.size)
		assert.Equal(t, tc.wantOffset, off)
		assert.Equal(t, tc.wantLim, lim)
	}
}

func TestTotalPages(t *testing.T) {
	assert.EqualValues(t, 0, TotalPages(0, 12))
	assert.EqualValues(t, 1, TotalPages(12, 12))
	assert.EqualValues(t, 2, TotalPages(13, 12))
	assert.EqualValues(t, 0, TotalPages(5, 0))
}
