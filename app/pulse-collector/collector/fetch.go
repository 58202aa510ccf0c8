package collector

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/burakkagann/berlin-pulse/foundation/httpclient"
)

// apiClient performs GET requests against the transport.rest API with a
// bounded retry budget. Rate limited responses back off linearly with the
// attempt number, a 404 is terminal and yields an empty body.
type apiClient struct {
	log           *log.Logger
	baseURL       string
	client        *http.Client
	retryAttempts int
	retryDelay    time.Duration

	// sleep is swapped out in tests
	sleep func(time.Duration)
}

// makeAPIClient builds an apiClient with a timeout bounded http.Client
func makeAPIClient(log *log.Logger,
	baseURL string,
	timeout time.Duration,
	retryAttempts int,
	retryDelay time.Duration) *apiClient {
	return &apiClient{
		log:           log,
		baseURL:       baseURL,
		client:        httpclient.MakeClient(timeout),
		retryAttempts: retryAttempts,
		retryDelay:    retryDelay,
		sleep:         time.Sleep,
	}
}

// getJSON requests path with params and returns the response body. A nil body
// with a nil error means the resource was not found. Transport errors, rate
// limits and unexpected statuses are retried up to the attempt budget, after
// which an error is returned and the caller folds it into an empty result.
func (c *apiClient) getJSON(path string, params url.Values) ([]byte, error) {
	requestURL := c.baseURL + path

	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		body, statusCode, err := httpclient.Get(c.client, requestURL, params)
		if err != nil {
			c.log.Printf("error requesting %s, attempt %d. error: %v\n", path, attempt, err)
			if attempt < c.retryAttempts {
				c.sleep(c.retryDelay)
			}
			continue
		}

		switch statusCode {
		case http.StatusOK:
			return body, nil
		case http.StatusTooManyRequests:
			c.log.Printf("rate limit hit for %s, attempt %d\n", path, attempt)
			c.sleep(c.retryDelay * time.Duration(attempt))
		case http.StatusNotFound:
			return nil, nil
		default:
			c.log.Printf("api returned status %d for %s\n", statusCode, path)
		}
	}

	return nil, fmt.Errorf("no usable response from %s after %d attempts", path, c.retryAttempts)
}
