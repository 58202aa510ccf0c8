// Package httpclient provides basic http functions
package httpclient

import (
	"bytes"
	"net/http"
	"net/url"
	"time"
)

const userAgent = "berlin-pulse/1.0"

// MakeClient creates an http.Client with an overall request timeout.
// The timeout covers connection, redirects and reading the response body.
func MakeClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

// Get performs a GET request against requestURL with params encoded as the
// query string. Returns the response body and status code. A non-2xx status
// is not an error, callers decide how to treat individual status codes.
func Get(client *http.Client, requestURL string, params url.Values) ([]byte, int, error) {
	if len(params) > 0 {
		requestURL = requestURL + "?" + params.Encode()
	}

	req, err := http.NewRequest(http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return buf.Bytes(), resp.StatusCode, nil
}
