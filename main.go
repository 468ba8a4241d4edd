package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	allocationapp "zev-billing/internal/allocation/application"
	allocationrepo "zev-billing/internal/allocation/infrastructure/postgres"
	billingapp "zev-billing/internal/billing/application"
	billing "zev-billing/internal/billing/domain"
	"zev-billing/internal/calendar"
	"zev-billing/internal/config"
	masterdataapp "zev-billing/internal/masterdata/application"
	masterdatarepo "zev-billing/internal/masterdata/infrastructure/postgres"
	"zev-billing/internal/observability/metrics"
	qualityapp "zev-billing/internal/quality/application"
	qualityrepo "zev-billing/internal/quality/infrastructure/postgres"
	readingsapp "zev-billing/internal/readings/application"
	readingsrepo "zev-billing/internal/readings/infrastructure/postgres"
	"zev-billing/internal/store"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags)
	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	db, err := sql.Open("pgx", cfg.Settings.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}
	if err := store.EnsureSchema(ctx, db); err != nil {
		logger.Fatalf("schema error: %v", err)
	}

	pipeline := metrics.New()
	if cfg.Settings.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Printf("metrics listening on %s", cfg.Settings.MetricsAddr)
			if err := http.ListenAndServe(cfg.Settings.MetricsAddr, mux); err != nil {
				logger.Printf("metrics server error: %v", err)
			}
		}()
	}

	rosterStore := masterdatarepo.NewRosterStore(db)
	rosterService, err := masterdataapp.NewRosterService(rosterStore, logger)
	if err != nil {
		logger.Fatalf("roster service error: %v", err)
	}
	if err := runStage(pipeline, "roster_sync", func() error {
		return rosterService.Sync(ctx, cfg)
	}); err != nil {
		logger.Fatalf("roster sync error: %v", err)
	}

	readingStore := readingsrepo.NewReadingStore(db)
	importService, err := readingsapp.NewImportService(rosterStore, readingStore, logger, pipeline)
	if err != nil {
		logger.Fatalf("import service error: %v", err)
	}
	if err := runStage(pipeline, "csv_import", func() error {
		_, err := importService.ImportDirectory(ctx, cfg.Settings.CSVDirectory)
		return err
	}); err != nil {
		logger.Fatalf("csv import error: %v", err)
	}

	monthStore, err := qualityrepo.NewMonthStore(db)
	if err != nil {
		logger.Fatalf("month store error: %v", err)
	}
	qualityService, err := qualityapp.NewService(rosterStore, readingStore, monthStore, logger)
	if err != nil {
		logger.Fatalf("quality service error: %v", err)
	}
	if err := runStage(pipeline, "quality_checks", func() error {
		_, err := qualityService.RunChecks(ctx)
		return err
	}); err != nil {
		logger.Fatalf("quality checks error: %v", err)
	}

	billable, err := qualityService.BillableMonths(ctx)
	if err != nil {
		logger.Fatalf("billable months error: %v", err)
	}
	allMonths, err := readingStore.ListDistinctMonths(ctx)
	if err != nil {
		logger.Fatalf("month listing error: %v", err)
	}
	billable = clipToWindow(billable, cfg, logger)
	pipeline.MonthsBillable.Set(float64(len(billable)))
	pipeline.MonthsExcluded.Set(float64(len(allMonths) - len(billable)))
	logger.Printf("months with data: %d, billable after window: %d", len(allMonths), len(billable))

	recordStore, err := allocationrepo.NewRecordStore(db)
	if err != nil {
		logger.Fatalf("record store error: %v", err)
	}
	allocationService, err := allocationapp.NewService(rosterStore, readingStore, recordStore, logger, pipeline)
	if err != nil {
		logger.Fatalf("allocation service error: %v", err)
	}
	if err := runStage(pipeline, "allocation", func() error {
		_, err := allocationService.AllocateMonths(ctx, billable)
		return err
	}); err != nil {
		logger.Fatalf("allocation error: %v", err)
	}

	periods := calendar.GroupByInterval(billable, cfg.Collective.BillingInterval)

	billingService, err := billingapp.NewService(rosterStore, recordStore, logger, pipeline)
	if err != nil {
		logger.Fatalf("billing service error: %v", err)
	}
	opts := billingapp.Options{
		ShowDailyDetail: cfg.Collective.ShowDailyDetail,
		MemberFees:      memberFees(cfg),
		VAT: billing.VATPolicy{
			Rate:    cfg.Collective.VATRate,
			OnLocal: cfg.Collective.VATOnLocal,
			OnGrid:  cfg.Collective.VATOnGrid,
			OnFees:  cfg.Collective.VATOnFees,
		},
	}
	var bills []billing.Bill
	if err := runStage(pipeline, "billing", func() error {
		var err error
		bills, err = billingService.CalculateBills(ctx, periods, opts)
		return err
	}); err != nil {
		logger.Fatalf("billing error: %v", err)
	}

	exportService, err := billingapp.NewExportService(logger)
	if err != nil {
		logger.Fatalf("export service error: %v", err)
	}
	if err := runStage(pipeline, "export", func() error {
		return exportService.Export(bills, billingapp.ExportConfig{
			OutputDir:       cfg.Settings.OutputDirectory,
			CollectiveName:  cfg.Collective.Name,
			Currency:        cfg.Collective.Currency,
			Language:        cfg.Collective.Language,
			ShowDailyDetail: cfg.Collective.ShowDailyDetail,
		})
	}); err != nil {
		logger.Fatalf("export error: %v", err)
	}

	logger.Printf("run complete: %d bill(s)", len(bills))
}

func runStage(pipeline *metrics.Pipeline, stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	pipeline.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	return err
}

// clipToWindow drops billable months outside the configured billing window.
// A malformed window is logged and ignored.
func clipToWindow(months []calendar.Month, cfg config.Config, logger *log.Logger) []calendar.Month {
	if cfg.Collective.BillingStart == "" && cfg.Collective.BillingEnd == "" {
		return months
	}
	start := calendar.Month{Year: 0, Month: 1}
	end := calendar.Month{Year: 9999, Month: 12}
	if cfg.Collective.BillingStart != "" {
		parsed, err := calendar.ParseMonth(cfg.Collective.BillingStart)
		if err != nil {
			logger.Printf("warning: billing_start ignored: %v", err)
		} else {
			start = parsed
		}
	}
	if cfg.Collective.BillingEnd != "" {
		parsed, err := calendar.ParseMonth(cfg.Collective.BillingEnd)
		if err != nil {
			logger.Printf("warning: billing_end ignored: %v", err)
		} else {
			end = parsed
		}
	}
	return calendar.ClipRange(months, start, end)
}

func memberFees(cfg config.Config) []billing.MemberFees {
	var result []billing.MemberFees
	for _, m := range cfg.Members {
		if len(m.Fees) == 0 {
			continue
		}
		fees := make([]billing.FeeDefinition, 0, len(m.Fees))
		for _, f := range m.Fees {
			fees = append(fees, billing.FeeDefinition{
				Name:  f.Name,
				Type:  f.Type,
				Value: f.Value,
				Basis: f.Basis,
			})
		}
		result = append(result, billing.MemberFees{
			FirstName: m.FirstName,
			LastName:  m.LastName,
			Fees:      fees,
		})
	}
	return result
}
