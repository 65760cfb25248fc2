package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func gaugeValue(t *testing.T, g interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestPrometheusRecordsGauges(t *testing.T) {
	p := NewPrometheus()
	p.SetChainHeight(42)
	p.SetMempoolSize(3)
	p.SetPeerCount(2)

	if got := gaugeValue(t, p.chainHeight); got != 42 {
		t.Errorf("chainHeight = %v, want 42", got)
	}
	if got := gaugeValue(t, p.mempoolSize); got != 3 {
		t.Errorf("mempoolSize = %v, want 3", got)
	}
	if got := gaugeValue(t, p.peerCount); got != 2 {
		t.Errorf("peerCount = %v, want 2", got)
	}
}

func TestPrometheusIncBlocksMined(t *testing.T) {
	p := NewPrometheus()
	p.IncBlocksMined()
	p.IncBlocksMined()

	var m dto.Metric
	if err := p.blocksMined.Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if m.GetCounter().GetValue() != 2 {
		t.Errorf("blocksMined = %v, want 2", m.GetCounter().GetValue())
	}
}

func TestNoopRecorderDoesNothing(t *testing.T) {
	var n Noop
	n.SetChainHeight(1)
	n.SetMempoolSize(1)
	n.SetPeerCount(1)
	n.IncBlocksMined()
}
