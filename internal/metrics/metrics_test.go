package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	handler := Middleware(mux)

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("418", http.MethodGet, "GET /api/v1/orders/{id}"))

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+id, nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	}

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("418", http.MethodGet, "GET /api/v1/orders/{id}"))
	assert.Equal(t, 2.0, after-before)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("404", http.MethodGet, "unmatched")))
	assert.Equal(t, 0.0, testutil.ToFloat64(httpRequestsInFlight))
}

func TestBusinessCounters(t *testing.T) {
	before := testutil.ToFloat64(ordersCreated.WithLabelValues("true"))
	OrderCreated(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(ordersCreated.WithLabelValues("true"))-before)

	before = testutil.ToFloat64(paymentReconciliations.WithLabelValues("stripe", "applied"))
	PaymentReconciled("stripe", "applied")
	assert.Equal(t, 1.0, testutil.ToFloat64(paymentReconciliations.WithLabelValues("stripe", "applied"))-before)

	before = testutil.ToFloat64(eventsEmitted.WithLabelValues("order.paid", "dropped"))
	EventEmitted("order.paid", "dropped")
	assert.Equal(t, 1.0, testutil.ToFloat64(eventsEmitted.WithLabelValues("order.paid", "dropped"))-before)
}
