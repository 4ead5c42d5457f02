package fetcher

import "fmt"

// ErrorKind classifies why a topic fetch failed so the run controller can
// apply the right backoff policy.
type ErrorKind string

const (
	ErrRateLimited ErrorKind = "rate_limited"
	ErrForbidden   ErrorKind = "forbidden"
	ErrServer      ErrorKind = "server_error"
	ErrParse       ErrorKind = "parse_error"
	ErrNetwork     ErrorKind = "network_error"
)

// FetchError is the typed error raised by the fetcher. It carries the topic
// and http status so callers can log and decide without string matching.
type FetchError struct {
	Kind       ErrorKind
	Topic      string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s for topic %q failed with status %d", e.Kind, e.Topic, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s for topic %q: %s", e.Kind, e.Topic, e.Err.Error())
	}
	return fmt.Sprintf("fetch %s for topic %q", e.Kind, e.Topic)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func classifyStatus(topic string, status int) *FetchError {
	switch {
	case status == 429:
		return &FetchError{Kind: ErrRateLimited, Topic: topic, StatusCode: status}
	case status == 403:
		return &FetchError{Kind: ErrForbidden, Topic: topic, StatusCode: status}
	case status >= 500:
		return &FetchError{Kind: ErrServer, Topic: topic, StatusCode: status}
	default:
		return &FetchError{Kind: ErrNetwork, Topic: topic, StatusCode: status}
	}
}
