package gateway

import (
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// RequestTimeout bounds every outbound gateway call. Single attempt,
// no retry; retry decisions belong to callers.
const RequestTimeout = 15 * time.Second

// Caller wraps an http.Client with a per-gateway circuit breaker so a
// down gateway fails fast instead of tying up webhook handlers.
type Caller struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewCaller(name string) *Caller {
	return &Caller{
		client: &http.Client{Timeout: RequestTimeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// Do executes the request through the breaker. Breaker-open and
// transport errors come back as plain errors; HTTP status handling is
// the caller's concern.
func (c *Caller) Do(req *http.Request) (*http.Response, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.client.Do(req)
	})
	if err != nil {
		return nil, err
	}
	return res.(*http.Response), nil
}
