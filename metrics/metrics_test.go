package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRemote(t *testing.T) {
	r := NewRegistry()

	r.ObserveRemote("Asignar autenticador", nil, 10*time.Millisecond)
	r.ObserveRemote("Asignar autenticador", errors.New("x"), time.Millisecond)
	r.ObserveRemote("Asignar autenticador", nil, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.RemoteCalls.WithLabelValues("Asignar autenticador", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.RemoteCalls.WithLabelValues("Asignar autenticador", "error")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	r := NewRegistry()
	r.NodesCreated.WithLabelValues("funcion", "spacing").Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `canvas_nodes_created_total{kind="funcion",origin="spacing"} 1`))
}
