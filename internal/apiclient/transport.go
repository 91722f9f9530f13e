package apiclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewTransport picks the fixture responder or the traced network transport.
// It is called once at startup; call sites never branch on mock mode.
func NewTransport(useMocks bool, latency time.Duration) http.RoundTripper {
	if useMocks {
		return NewMockTransport(latency)
	}
	return otelhttp.NewTransport(http.DefaultTransport)
}
