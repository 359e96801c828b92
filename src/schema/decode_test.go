package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decodeTarget struct {
	Name  *string    `json:"name" validate:"required"`
	Pairs [][]string `json:"pairs" validate:"omitempty,dive,len=2"`
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "valid", content: `{"name":"a","pairs":[["k","v"]]}`},
		{name: "surrounding whitespace", content: "\n  {\"name\":\"a\"}  \n"},
		{name: "empty name is present", content: `{"name":""}`},
		{name: "empty", content: "", wantErr: true},
		{name: "not json", content: "the answer is 84", wantErr: true},
		{name: "missing required", content: `{"pairs":[]}`, wantErr: true},
		{name: "null required", content: `{"name":null}`, wantErr: true},
		{name: "unknown key", content: `{"name":"a","extra":1}`, wantErr: true},
		{name: "wrong type", content: `{"name":42}`, wantErr: true},
		{name: "bad pair", content: `{"name":"a","pairs":[["only-key"]]}`, wantErr: true},
		{name: "trailing data", content: `{"name":"a"} {"name":"b"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst decodeTarget
			err := Decode(tt.content, &dst)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrSchemaMismatch)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, dst.Name)
		})
	}
}

func TestValidateMessage(t *testing.T) {
	err := Validate(&decodeTarget{Pairs: [][]string{{"a"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decodeTarget.Name")
	assert.Contains(t, err.Error(), "'required'")
	assert.Contains(t, err.Error(), "'len=2'")
}
