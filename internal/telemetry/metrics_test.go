package telemetry

import (
	"context"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetrics_AllRegistered(t *testing.T) {
	type describer interface {
		Describe(chan<- *prometheus.Desc)
	}

	cases := []struct {
		name string
		c    describer
	}{
		{"http_requests_total", HTTPRequestsTotal},
		{"http_request_duration_seconds", HTTPRequestDuration},
		{"json_object_mutations_total", ObjectMutationsTotal},
		{"json_object_exports_total", ObjectExportsTotal},
		{"login_attempts_total", LoginAttemptsTotal},
		{"db_open_connections", DBOpenConnections},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ch := make(chan *prometheus.Desc, 10)
			tc.c.Describe(ch)
			close(ch)
			for desc := range ch {
				if strings.Contains(desc.String(), `"`+tc.name+`"`) {
					return
				}
			}
			t.Errorf("metric %q not described", tc.name)
		})
	}
}

func TestMetrics_ObjectMutationsTotal_CanBeIncremented(t *testing.T) {
	labels := prometheus.Labels{"action": "create", "outcome": "conflict"}
	before := counterValue(t, ObjectMutationsTotal, labels)
	ObjectMutationsTotal.With(labels).Inc()
	if after := counterValue(t, ObjectMutationsTotal, labels); after-before < 1 {
		t.Errorf("ObjectMutationsTotal did not increase (before=%.0f after=%.0f)", before, after)
	}
}

func TestMetrics_ObjectExportsTotal_CanBeIncremented(t *testing.T) {
	before := plainCounterValue(t, ObjectExportsTotal)
	ObjectExportsTotal.Inc()
	if after := plainCounterValue(t, ObjectExportsTotal); after-before < 1 {
		t.Error("ObjectExportsTotal did not increase")
	}
}

func TestStartDBStatsCollector_StopsOnCancel(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	mock.ExpectPing()

	ctx, cancel := context.WithCancel(context.Background())
	StartDBStatsCollector(ctx, db, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
	DBOpenConnections.Set(0)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// counterValue reads the current value of a CounterVec for the given label set.
func counterValue(t *testing.T, cv *prometheus.CounterVec, labels prometheus.Labels) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 20)
	cv.Collect(ch)
	close(ch)
	for m := range ch {
		var dm dto.Metric
		if err := m.Write(&dm); err != nil {
			continue
		}
		if labelsMatch(dm.GetLabel(), labels) {
			return dm.GetCounter().GetValue()
		}
	}
	return 0
}

// plainCounterValue reads the value of a plain (non-vec) Counter.
func plainCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	close(ch)
	for m := range ch {
		var dm dto.Metric
		if err := m.Write(&dm); err != nil {
			continue
		}
		return dm.GetCounter().GetValue()
	}
	return 0
}

// labelsMatch returns true when all entries in want appear in got.
func labelsMatch(got []*dto.LabelPair, want prometheus.Labels) bool {
	for k, v := range want {
		found := false
		for _, lp := range got {
			if lp.GetName() == k && lp.GetValue() == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
