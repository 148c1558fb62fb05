package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublicEndpoints(t *testing.T) {
	tests := []struct {
		method string
		public bool
	}{
		{method: HealthCheck, public: true},
		{method: HealthWatch, public: true},
		{method: BridgeLogin, public: false},
		{method: "/unknown.Service/Method", public: false},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			assert.Equal(t, tt.public, PublicEndpoints[tt.method])
		})
	}
}
