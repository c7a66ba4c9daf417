package predict

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanhutnik/aegis-service/internal/common"
	"github.com/evanhutnik/aegis-service/internal/types"
)

var testKey = types.SeverityKey{Area: 8, Month: 3, Hour: 21, Year: 2024}

func newServer(t *testing.T, status int, body string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, Request{CommunityArea: 8, Month: 3, Hour: 21, Year: 2024}, req)

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSeverity_NumericScore(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"severity_score": 12.5}`)
	c := New(BaseUrlOption(srv.URL))

	score, err := c.Severity(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, 12.5, score)
}

func TestSeverity_StringScore(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"severity_score": "7.25"}`)
	c := New(BaseUrlOption(srv.URL))

	score, err := c.Severity(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, 7.25, score)
}

func TestSeverity_Non2xx(t *testing.T) {
	srv := newServer(t, http.StatusServiceUnavailable, `{}`)
	c := New(BaseUrlOption(srv.URL))

	_, err := c.Severity(context.Background(), testKey)
	var statusErr *common.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
}

func TestSeverity_Malformed(t *testing.T) {
	cases := map[string]string{
		"missing":     `{"other": 1}`,
		"not numeric": `{"severity_score": "high"}`,
		"object":      `{"severity_score": {"v": 1}}`,
		"null":        `{"severity_score": null}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := newServer(t, http.StatusOK, body)
			c := New(BaseUrlOption(srv.URL))

			_, err := c.Severity(context.Background(), testKey)
			assert.True(t, errors.Is(err, ErrMalformedResponse), "got %v", err)
		})
	}
}

func TestSeverity_InvalidJSON(t *testing.T) {
	srv := newServer(t, http.StatusOK, `not json`)
	c := New(BaseUrlOption(srv.URL))

	_, err := c.Severity(context.Background(), testKey)
	assert.Error(t, err)
}

func TestSeverity_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	c := New(BaseUrlOption(srv.URL), TimeoutOption(20*time.Millisecond))

	_, err := c.Severity(context.Background(), testKey)
	assert.Error(t, err)
}

func TestNew_PanicsWithoutBaseUrl(t *testing.T) {
	assert.Panics(t, func() { New() })
}
