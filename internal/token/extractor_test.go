package token

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderExtractor_Extract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		header  string
		value   string
		want    string
		wantErr error
	}{
		{
			name:   "bearer token",
			header: "Authorization",
			value:  "Bearer abc.def.ghi",
			want:   "abc.def.ghi",
		},
		{
			name:   "lowercase scheme",
			header: "Authorization",
			value:  "bearer abc.def.ghi",
			want:   "abc.def.ghi",
		},
		{
			name:    "missing header",
			header:  "",
			value:   "",
			wantErr: ErrMissingHeader,
		},
		{
			name:    "wrong scheme",
			header:  "Authorization",
			value:   "Basic dXNlcjpwYXNz",
			wantErr: ErrInvalidPrefix,
		},
		{
			name:    "scheme only too short",
			header:  "Authorization",
			value:   "Bear",
			wantErr: ErrInvalidPrefix,
		},
	}

	e := NewHeaderExtractor("", "")

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}

			got, err := e.Extract(req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHeaderExtractor_CustomHeader(t *testing.T) {
	t.Parallel()

	e := NewHeaderExtractor("X-Session-Token", "Token ")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Session-Token", "Token xyz")

	got, err := e.Extract(req)
	require.NoError(t, err)
	assert.Equal(t, "xyz", got)
}
