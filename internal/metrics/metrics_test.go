package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register: %v", err)
	}
}

func TestObserveOperationNormalisesOutcome(t *testing.T) {
	before := testutil.ToFloat64(operationsTotal.WithLabelValues(OpFilter, OutcomeSuccess))
	ObserveOperation(OpFilter, -time.Second, "weird")
	after := testutil.ToFloat64(operationsTotal.WithLabelValues(OpFilter, OutcomeSuccess))
	if after-before != 1 {
		t.Fatalf("expected unknown outcome to count as success, delta=%v", after-before)
	}

	before = testutil.ToFloat64(translationFailuresTotal.WithLabelValues("unknown"))
	ObserveTranslationFailure("")
	if got := testutil.ToFloat64(translationFailuresTotal.WithLabelValues("unknown")) - before; got != 1 {
		t.Fatalf("expected empty reason to be labelled unknown, delta=%v", got)
	}

	SetCorpusSize(42)
	if got := testutil.ToFloat64(corpusItems); got != 42 {
		t.Fatalf("unexpected corpus gauge: %v", got)
	}
}
