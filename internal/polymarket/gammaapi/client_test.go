package gammaapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/liamashdown/insiderdetector/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMarketByConditionID(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		status      int
		expectSlug  string
		expectIcon  string
		expectEvent string
		expectErr   error
	}{
		{
			name:        "array response",
			body:        `[{"conditionId":"0xc1","slug":"will-x","question":"Will X?","icon":"https://cdn/x.png","events":[{"slug":"x-event"}]}]`,
			status:      http.StatusOK,
			expectSlug:  "will-x",
			expectIcon:  "https://cdn/x.png",
			expectEvent: "x-event",
		},
		{
			name:       "single object with image only",
			body:       `{"conditionId":"0xc1","slug":"will-y","image":"https://cdn/y.png"}`,
			status:     http.StatusOK,
			expectSlug: "will-y",
			expectIcon: "https://cdn/y.png",
		},
		{
			name:      "empty array",
			body:      `[]`,
			status:    http.StatusOK,
			expectErr: ErrMarketNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/markets", r.URL.Path)
				assert.Equal(t, "0xc1", r.URL.Query().Get("condition_ids"))
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(&config.Config{GammaAPIBaseURL: srv.URL, GammaAPIMarketsRPS: 100})
			m, err := c.GetMarketByConditionID(context.Background(), "0xc1")

			if tt.expectErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.expectErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectSlug, m.Slug)
			assert.Equal(t, tt.expectIcon, m.IconURL())
			assert.Equal(t, tt.expectEvent, m.EventSlug())
		})
	}
}

func TestGetMarketUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(&config.Config{GammaAPIBaseURL: srv.URL, GammaAPIMarketsRPS: 100})
	_, err := c.GetMarketByConditionID(context.Background(), "0xc1")
	assert.Error(t, err)
}
