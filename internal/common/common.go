package common

import (
	"fmt"
	"net/http"
)

// DoWithRetry sends req up to attempts times, stopping at the first 2xx response.
// Requests with a body must have GetBody set so the body can be replayed.
func DoWithRetry(client *http.Client, req *http.Request, name string, attempts int) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for retries := attempts; retries > 0; retries-- {
		if err := req.Context().Err(); err != nil {
			return nil, fmt.Errorf("%v api request cancelled: %w", name, err)
		}
		if retries < attempts && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("error replaying %v request body: %w", name, err)
			}
			req.Body = body
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("error on %v api request: %w", name, err)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			lastErr = &StatusError{Name: name, Code: resp.StatusCode}
			continue
		}
		return resp, nil
	}
	return nil, lastErr
}

type StatusError struct {
	Name string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("error code %v returned from %v", e.Code, e.Name)
}
