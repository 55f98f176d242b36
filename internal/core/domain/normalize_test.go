package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AchilleasB/campus-portal/directory-service/internal/core/domain"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"CS", "cs"},
		{"  Computer Science ", "computer science"},
		{"\tMATH\n", "math"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := domain.NormalizeKey(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, domain.NormalizeKey(got), "normalizing twice must not change the key")
		})
	}
}

func TestDeriveCode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"two words", "Computer Science", "CS"},
		{"single short word", "X", "X"},
		{"single long word", "Mathematics", "MATH"},
		{"lower case", "electrical engineering", "EE"},
		{"extra spacing", "  Business   Administration ", "BA"},
		{"more than four words", "School Of Arts And Social Sciences", "SOAA"},
		{"empty", "   ", ""},
		{"non ascii", "Économie", "ÉCON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.DeriveCode(tt.in))
			assert.Equal(t, domain.DeriveCode(tt.in), domain.DeriveCode(tt.in))
		})
	}
}

func TestUniqueCode(t *testing.T) {
	taken := map[string]struct{}{"cs": {}, "cs1": {}}
	other := map[string]struct{}{"cs2": {}}

	assert.Equal(t, "MATH", domain.UniqueCode("MATH", taken))
	assert.Equal(t, "CS2", domain.UniqueCode("CS", taken))
	assert.Equal(t, "CS3", domain.UniqueCode("CS", taken, other))
	assert.Equal(t, "CS", domain.UniqueCode("CS"))
}
