package allergen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodes(t *testing.T) {
	codes := Codes()
	assert.Len(t, codes, 10)
	assert.Contains(t, codes, "milk")
	assert.Contains(t, codes, "eggs")
	assert.Contains(t, codes, "peanuts")
	assert.Contains(t, codes, "wheat")
	assert.IsIncreasing(t, codes)
}

func TestKnown(t *testing.T) {
	assert.True(t, Known("tree_nuts"))
	assert.True(t, Known(" Milk "))
	assert.False(t, Known("gluten"))
}

func TestInfer(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"empty", nil, []string{}},
		{"single", []string{"milk"}, []string{"milk"}},
		{"keyword", []string{"butter"}, []string{"milk"}},
		{"several", []string{"milk", "flour", "butter"}, []string{"milk", "wheat"}},
		{"case insensitive", []string{"MILK", "Egg"}, []string{"eggs", "milk"}},
		{"substring", []string{"all-purpose flour"}, []string{"wheat"}},
		{"none", []string{"carrot", "onion"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Infer(tt.input))
		})
	}
}
