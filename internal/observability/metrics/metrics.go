package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline bundles metrics for one billing pipeline run.
type Pipeline struct {
	RowsImported     prometheus.Counter
	RowsSkipped      prometheus.Counter
	MonthsBillable   prometheus.Gauge
	MonthsExcluded   prometheus.Gauge
	AllocationsTotal prometheus.Counter
	BalanceFailures  prometheus.Counter
	BillsTotal       prometheus.Counter
	StageDuration    *prometheus.HistogramVec
}

// New constructs and registers pipeline metrics.
func New() *Pipeline {
	m := &Pipeline{
		RowsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zev_import_rows_total",
			Help: "Total normalized reading rows upserted",
		}),
		RowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zev_import_rows_skipped_total",
			Help: "Total raw rows skipped (quality flag, unknown meter, malformed)",
		}),
		MonthsBillable: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zev_billable_months",
			Help: "Months qualifying for billing in the last run",
		}),
		MonthsExcluded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zev_excluded_months",
			Help: "Months excluded from billing in the last run",
		}),
		AllocationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zev_allocation_records_total",
			Help: "Total allocation records written",
		}),
		BalanceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zev_allocation_balance_failures_total",
			Help: "Energy balance check violations during allocation",
		}),
		BillsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zev_bills_total",
			Help: "Total member bills calculated",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zev_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
	}
	prometheus.MustRegister(
		m.RowsImported,
		m.RowsSkipped,
		m.MonthsBillable,
		m.MonthsExcluded,
		m.AllocationsTotal,
		m.BalanceFailures,
		m.BillsTotal,
		m.StageDuration,
	)
	return m
}
