package transport

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoAuth(t *testing.T) {
	req := &http.Request{Header: make(http.Header)}
	(&NoAuth{}).Apply(req, "test-api-key")
	assert.Empty(t, req.Header)
}

func TestHeaderAuth(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
		want   string
	}{
		{name: "key set", apiKey: "test-api-key", want: "test-api-key"},
		{name: "empty key", apiKey: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &http.Request{Header: make(http.Header)}
			(&HeaderAuth{Header: "x-api-key"}).Apply(req, tt.apiKey)
			assert.Equal(t, tt.want, req.Header.Get("x-api-key"))
			assert.Empty(t, req.Header.Get("Authorization"))
		})
	}
}
