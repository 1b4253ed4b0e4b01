package monitoring

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsExposition(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveStoreOp("add", time.Now(), nil)
	metrics.ObserveStoreOp("add", time.Now(), errors.New("boom"))
	metrics.ObserveExtraction(time.Now(), nil)
	metrics.ObserveFetch(time.Now(), nil)
	metrics.RecordsSaved.Set(2)

	recorder := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))

	body := recorder.Body.String()
	for _, want := range []string{
		`progscout_store_operations_total{operation="add",outcome="success"} 1`,
		`progscout_store_operations_total{operation="add",outcome="error"} 1`,
		`progscout_extractor_extractions_total{outcome="success"} 1`,
		`progscout_fetch_requests_total{outcome="success"} 1`,
		`progscout_store_records_saved 2`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestMetricsRegistriesIndependent(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()
	a.ObserveExtraction(time.Now(), nil)

	recorder := httptest.NewRecorder()
	b.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))
	if strings.Contains(recorder.Body.String(), `extractions_total{outcome="success"} 1`) {
		t.Error("collectors leaked between registries")
	}
}
