package cmd

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// counterValue sums the named counter across series whose labels include
// every pair in match.
func counterValue(g prometheus.Gatherer, name string, match map[string]string) (float64, error) {
	families, err := g.Gather()
	if err != nil {
		return 0, fmt.Errorf("gathering metrics: %w", err)
	}

	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m.GetLabel(), match) {
				total += m.GetCounter().GetValue()
			}
		}
	}
	return total, nil
}

func labelsMatch(labels []*dto.LabelPair, match map[string]string) bool {
	found := 0
	for _, lp := range labels {
		if want, ok := match[lp.GetName()]; ok {
			if lp.GetValue() != want {
				return false
			}
			found++
		}
	}
	return found == len(match)
}

func printSummary(w io.Writer, g prometheus.Gatherer, backend string) error {
	labels := map[string]string{"backend": backend}
	rows := []struct {
		label  string
		metric string
	}{
		{"sent", "dgramsock_datagrams_sent_total"},
		{"dropped", "dgramsock_datagrams_dropped_total"},
		{"received", "dgramsock_datagrams_received_total"},
		{"errors", "dgramsock_errors_total"},
	}
	for _, r := range rows {
		v, err := counterValue(g, r.metric, labels)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%-9s %d\n", r.label+":", int64(v))
	}
	return nil
}
