package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/evanhutnik/aegis-service/internal/common"
	t "github.com/evanhutnik/aegis-service/internal/types"
)

type Request struct {
	CommunityArea int `json:"Community_Area"`
	Month         int `json:"Month"`
	Hour          int `json:"Hour"`
	Year          int `json:"Year"`
}

type Response struct {
	SeverityScore json.RawMessage `json:"severity_score"`
}

var ErrMalformedResponse = errors.New("malformed prediction response")

type ClientOption func(*Client)

type Client struct {
	baseUrl  string
	timeout  time.Duration
	attempts int
	http     *http.Client
}

func BaseUrlOption(baseUrl string) ClientOption {
	return func(c *Client) {
		c.baseUrl = baseUrl
	}
}

// TimeoutOption bounds each prediction call, retries included.
func TimeoutOption(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

func AttemptsOption(attempts int) ClientOption {
	return func(c *Client) {
		c.attempts = attempts
	}
}

func HTTPClientOption(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

func New(opts ...ClientOption) *Client {
	c := &Client{
		timeout:  10 * time.Second,
		attempts: 1,
		http:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.baseUrl == "" {
		panic("Missing baseUrl in predict client")
	}
	return c
}

// Severity asks the prediction service for the crime severity of an area at a
// given time.
func (c *Client) Severity(ctx context.Context, key t.SeverityKey) (float64, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(Request{
		CommunityArea: int(key.Area),
		Month:         key.Month,
		Hour:          key.Hour,
		Year:          key.Year,
	})
	if err != nil {
		return 0, fmt.Errorf("error marshalling prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseUrl, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to build prediction request for %s: %w", c.baseUrl, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := common.DoWithRetry(c.http, req, "predict", c.attempts)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("error reading predict response body: %w", err)
	}

	var respObj Response
	if err := json.Unmarshal(body, &respObj); err != nil {
		return 0, fmt.Errorf("error unmarshalling response from predict: %w", err)
	}
	return parseScore(respObj.SeverityScore)
}

// parseScore accepts the score as a JSON number or a numeric string.
func parseScore(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("%w: missing severity_score", ErrMalformedResponse)
	}

	var score float64
	if err := json.Unmarshal(raw, &score); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("%w: severity_score is %s", ErrMalformedResponse, string(raw))
		}
		score, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: severity_score %q is not numeric", ErrMalformedResponse, s)
		}
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, fmt.Errorf("%w: severity_score is not finite", ErrMalformedResponse)
	}
	return score, nil
}
