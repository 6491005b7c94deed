package ip

import "github.com/prometheus/client_golang/prometheus"

// reassemblyActiveFragments tracks the number of in-flight assembly
// entries across all buckets, the same metric shape
// firestige-Otus/internal/metrics defines for its own packet-capture
// reassembly stage.
var reassemblyActiveFragments = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "ipcore",
	Subsystem: "reassembly",
	Name:      "active_entries",
	Help:      "Number of in-flight IPv4 reassembly entries across all assembly-table buckets.",
})

func init() {
	prometheus.MustRegister(reassemblyActiveFragments)
}
