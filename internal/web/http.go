package web

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Logger routes retryablehttp messages to slog.
type Logger struct{}

func (l *Logger) Printf(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...))
}

// NewRetryableClient builds the HTTP client used for endpoint probes and
// model calls. The default policy retries connection errors, 5xx and 429.
func NewRetryableClient(retries int, waitMin, waitMax time.Duration) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = waitMin
	client.RetryWaitMax = waitMax
	client.Logger = &Logger{}
	return client
}
