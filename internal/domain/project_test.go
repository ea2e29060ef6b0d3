package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateShortID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr string
	}{
		{"SAT01", ""},
		{"ROVER2024", ""},
		{"ABCDEF01", ""},
		{"", "required"},
		{"sat01", "uppercase"},
		{"AB1", "uppercase"},
		{"PROBE", "digits"},
	}
	for _, tc := range tests {
		t.Run(tc.id, func(t *testing.T) {
			p := &Project{ShortID: tc.id}
			err := p.ValidateShortID()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDisplayID(t *testing.T) {
	assert.Equal(t, "SAT01", (&Project{ID: "550e8400-e29b-41d4-a716-446655440000", ShortID: "SAT01"}).DisplayID())
	assert.Equal(t, "550e8400", (&Project{ID: "550e8400-e29b-41d4-a716-446655440000"}).DisplayID())
	assert.Equal(t, "abc", (&Project{ID: "abc"}).DisplayID())
}
