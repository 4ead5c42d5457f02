package fetcher

import (
	"net/http"
	"time"
)

// Reddit's feed endpoints reject the default Go user agent, so every request
// identifies itself with a regular desktop browser string.
const feedUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type HttpClient struct{}

func (HttpClient) Get(uri string) (resp *http.Response, err error) {
	return HttpClient{}.GetWithin(uri, 0)
}

// GetWithin issues a GET with a per-request timeout in seconds. seconds <= 0
// means no timeout.
func (HttpClient) GetWithin(uri string, seconds int) (resp *http.Response, err error) {
	client := &http.Client{}
	if seconds > 0 {
		client.Timeout = time.Duration(seconds) * time.Second
	}
	req, err := http.NewRequest(http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", feedUserAgent)
	return client.Do(req)
}
