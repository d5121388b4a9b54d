package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/api/history/delete/12":             "/api/history/delete/{id}",
		"/api/history":                       "/api/history",
		"/static/uploads/user_3/abc_x.png":   "/static/uploads/{file}",
		"/static/app.js":                     "/static/app.js",
		"/":                                  "/",
	}
	for in, want := range cases {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStartAnalysis(t *testing.T) {
	before := testutil.ToFloat64(AnalysisTotal.WithLabelValues("test", OutcomeRefused))

	done := StartAnalysis("test")
	if got := testutil.ToFloat64(AnalysisInFlight); got < 1 {
		t.Errorf("in flight = %v, want >= 1", got)
	}
	done(OutcomeRefused)

	after := testutil.ToFloat64(AnalysisTotal.WithLabelValues("test", OutcomeRefused))
	if after != before+1 {
		t.Errorf("refused count = %v, want %v", after, before+1)
	}
}
