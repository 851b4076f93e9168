package feedback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/force-pipeline/internal/model"
	"github.com/sells-group/force-pipeline/internal/resilience"
)

func TestReportMisclassification_Delivers(t *testing.T) {
	t.Parallel()
	var got Report
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	sink := NewWebhookSink(srv.URL)
	err := sink.ReportMisclassification(context.Background(), model.Opportunity{
		ID: "opp-1", ForceID: "met", SignalIDs: []string{"sig-1"},
	}, "misclassified")
	require.NoError(t, err)

	assert.Equal(t, "opp-1", got.OpportunityID)
	assert.Equal(t, "misclassified", got.Reason)
	assert.Equal(t, []string{"sig-1"}, got.SignalIDs)
}

func TestReportMisclassification_ServerError(t *testing.T) {
	t.Parallel()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	sink := NewWebhookSink(srv.URL)
	sink.retry = fastRetry()
	err := sink.ReportMisclassification(context.Background(), model.Opportunity{ID: "opp-1"}, "wrong_force")
	assert.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestReportMisclassification_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	sink := NewWebhookSink(srv.URL)
	sink.retry = fastRetry()
	err := sink.ReportMisclassification(context.Background(), model.Opportunity{ID: "opp-1"}, "wrong_force")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestReportMisclassification_ClientErrorNotRetried(t *testing.T) {
	t.Parallel()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	t.Cleanup(srv.Close)

	sink := NewWebhookSink(srv.URL)
	sink.retry = fastRetry()
	err := sink.ReportMisclassification(context.Background(), model.Opportunity{ID: "opp-1"}, "wrong_force")
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func fastRetry() resilience.Policy {
	return resilience.Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestReportMisclassification_NoURLIsNoop(t *testing.T) {
	t.Parallel()
	sink := NewWebhookSink("")
	err := sink.ReportMisclassification(context.Background(), model.Opportunity{ID: "opp-1"}, "misclassified")
	assert.NoError(t, err)
}
