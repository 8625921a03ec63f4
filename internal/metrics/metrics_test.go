package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/candlechat/internal/conversation"
	"github.com/KaramelBytes/candlechat/internal/present"
)

func TestTurnCompleted(t *testing.T) {
	r := New()
	r.TurnCompleted(conversation.Report{Action: present.ShowText, Generation: time.Second, Execution: time.Millisecond})
	r.TurnCompleted(conversation.Report{Action: present.ShowText, Failed: true, Stage: "run"})
	r.TurnCompleted(conversation.Report{Action: present.ShowText, Failed: true})
	r.TurnCompleted(conversation.Report{Action: present.ShowText, Demo: true})
	r.TurnCompleted(conversation.Report{Action: present.ShowChart})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.turns.WithLabelValues("text", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.turns.WithLabelValues("text", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.turns.WithLabelValues("text", "demo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.turns.WithLabelValues("chart", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failures.WithLabelValues("run")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failures.WithLabelValues("unknown")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.generation))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.SetSessions(3)
	r.ObserveHTTP("/api/sessions", http.MethodPost, http.StatusCreated, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "candlechat_sessions 3")
	assert.True(t, strings.Contains(body, `candlechat_http_requests_total{method="POST",route="/api/sessions",status="201"} 1`), body)
}

func TestRecordersAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.SetSessions(1)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.sessions))
}
