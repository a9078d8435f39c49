package maintenance

import "github.com/prometheus/client_golang/prometheus"

var (
	sweepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridepulse_chart_sweep_runs_total",
			Help: "Total number of chart directory sweeps by status.",
		},
		[]string{"status"},
	)
	sweepFilesDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ridepulse_chart_sweep_files_deleted_total",
			Help: "Total number of expired chart files deleted.",
		},
	)
	sweepBytesFreedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ridepulse_chart_sweep_bytes_freed_total",
			Help: "Total bytes reclaimed by chart sweeps.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		sweepRunsTotal,
		sweepFilesDeletedTotal,
		sweepBytesFreedTotal,
	)
}
