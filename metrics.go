package osmextract

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterStats publishes counters of finished run as gauges:
// osmextract_records{kind} for prepared data and osmextract_dropped_records{reason} for dropped one
func RegisterStats(stats Stats, r prometheus.Registerer) error {
	records := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "osmextract",
		Name:      "records",
		Help:      "Number of records written to output files",
	}, []string{"kind"})
	dropped := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "osmextract",
		Name:      "dropped_records",
		Help:      "Number of records dropped during preparation",
	}, []string{"reason"})
	if err := r.Register(records); err != nil {
		return errors.Wrap(err, "Can't register records gauge")
	}
	if err := r.Register(dropped); err != nil {
		return errors.Wrap(err, "Can't register dropped records gauge")
	}

	records.WithLabelValues("nodes").Set(float64(stats.Nodes))
	records.WithLabelValues("edges").Set(float64(stats.Edges))
	records.WithLabelValues("unconditional_restrictions").Set(float64(stats.UnconditionalRestrictions))
	records.WithLabelValues("conditional_restrictions").Set(float64(stats.ConditionalRestrictions))
	records.WithLabelValues("names").Set(float64(stats.Names))

	dropped.WithLabelValues("dangling_nodes").Set(float64(stats.DanglingNodes))
	dropped.WithLabelValues("dangling_edges").Set(float64(stats.DanglingEdges))
	dropped.WithLabelValues("rejected_ways").Set(float64(stats.RejectedWays))
	dropped.WithLabelValues("rejected_edges").Set(float64(stats.RejectedEdges))
	dropped.WithLabelValues("self_loops").Set(float64(stats.SelfLoops))
	dropped.WithLabelValues("pruned_nodes").Set(float64(stats.PrunedNodes))
	dropped.WithLabelValues("unresolved_restrictions").Set(float64(stats.UnresolvedRestrictions))
	dropped.WithLabelValues("ambiguous_restrictions").Set(float64(stats.AmbiguousRestrictions))
	return nil
}

// WriteStatsFile writes counters in Prometheus text format, e.g. for node_exporter textfile collector
func WriteStatsFile(stats Stats, fname string) error {
	registry := prometheus.NewRegistry()
	if err := RegisterStats(stats, registry); err != nil {
		return err
	}
	return errors.Wrapf(prometheus.WriteToTextfile(fname, registry), "Can't write metrics to '%s'", fname)
}
