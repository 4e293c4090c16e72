package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"solarsync/internal/commission"
	"solarsync/internal/config"
	"solarsync/internal/deyecloud"
	"solarsync/internal/ingest"
	"solarsync/internal/observability/metrics"
	"solarsync/internal/orders"
	"solarsync/internal/reports"
	"solarsync/internal/store"
	"solarsync/internal/strategy"
)

const usage = `usage: solarsync <command> [args]

commands:
  sync-stations                     refresh the local station table
  backfill <start> <end>            ingest daily aggregates for a date range
  backfill-frames <start> <end>     ingest power samples for a date range
  daily-update                      ingest yesterday's daily aggregate
  rates set <year> <month> <sell> <buy>
  rates list
  rates delete <year> <month>
  report month <year> <month>       calendar-month energy summary
  report billing <year> <month>     billing-month financial summary
  report year <year>                yearly summary
  report roi <from-year> <to-year>  return on investment
  report range <start> <end>        raw daily rows for a date range
  report recent <days|last7|last30> raw recent days
  report frames <date>              one day of power samples
  export <year> <file.xlsx|file.pdf>
  control read <addr> <count>       read inverter registers via cloud order
  control write <addr> <value>      write a single inverter register
  strategy <preset>                 push a time-of-use preset

dates are YYYY-MM-DD; ranges also accept last7 and last30.`

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)
	if err := run(logger, os.Args[1:]); err != nil {
		logger.Printf("error: %v", err)
		os.Exit(1)
	}
}

func run(logger *log.Logger, args []string) error {
	if len(args) == 0 {
		fmt.Println(usage)
		return errors.New("missing command")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	metrics.Init()
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Printf("metrics listener: %v", err)
			}
		}()
	}

	app, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer app.close()

	ctx := context.Background()
	switch args[0] {
	case "sync-stations", "sync-station":
		return app.syncStations(ctx)
	case "backfill":
		return app.backfill(ctx, args[1:], false)
	case "backfill-frames":
		return app.backfill(ctx, args[1:], true)
	case "daily-update":
		return app.dailyUpdate(ctx)
	case "rates":
		return app.rates(ctx, args[1:])
	case "report":
		return app.report(ctx, args[1:])
	case "export":
		return app.export(ctx, args[1:])
	case "control":
		return app.control(ctx, args[1:])
	case "strategy":
		return app.strategy(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Println(usage)
		return nil
	default:
		fmt.Println(usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// app wires the vendor client, store, and services for one CLI invocation.
// The database is opened here and closed when the command finishes.
type app struct {
	cfg    config.Config
	logger *log.Logger
	db     *sql.DB

	client   *deyecloud.Client
	ingest   *ingest.Service
	engine   *reports.Engine
	rateRepo *store.RatesRepository
	station  *store.StationRepository
	poller   *orders.Poller

	loc *time.Location
}

func newApp(cfg config.Config, logger *log.Logger) (*app, error) {
	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	client, err := deyecloud.NewClient(cfg.Vendor.BaseURL, cfg.Vendor.Token,
		deyecloud.WithTimeout(time.Duration(cfg.Vendor.TimeoutSeconds)*time.Second))
	if err != nil {
		db.Close()
		return nil, err
	}
	if cfg.Vendor.Token == "" && cfg.Vendor.AppID != "" {
		tok, err := client.ObtainToken(context.Background(), deyecloud.Credentials{
			AppID:     cfg.Vendor.AppID,
			AppSecret: cfg.Vendor.AppSecret,
			Email:     cfg.Vendor.Email,
			CompanyID: cfg.Vendor.CompanyID,
			Password:  cfg.Vendor.Password,
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("obtain token: %w", err)
		}
		client.SetToken(tok)
	} else if cfg.Vendor.Token != "" {
		if exp, err := deyecloud.TokenExpiry(cfg.Vendor.Token); err == nil && time.Until(exp) < 24*time.Hour {
			logger.Printf("vendor token expires %s; refresh soon", exp.Format(time.RFC3339))
		}
	}

	loc := time.Local
	if cfg.Ingest.Timezone != "" && cfg.Ingest.Timezone != "Local" {
		loc, err = time.LoadLocation(cfg.Ingest.Timezone)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("bad timezone %q: %w", cfg.Ingest.Timezone, err)
		}
	}

	dailyOpts := []store.DailyOption{}
	if cfg.Ingest.FailFast {
		dailyOpts = append(dailyOpts, store.WithDailyFailFast())
	}
	dailyRepo := store.NewDailyRepository(db, dailyOpts...)
	frameRepo := store.NewFrameRepository(db)
	stationRepo := store.NewStationRepository(db)
	ratesRepo := store.NewRatesRepository(db)

	svc, err := ingest.NewService(client, dailyRepo, frameRepo, stationRepo, logger,
		ingest.WithChunkDays(cfg.Ingest.ChunkDays),
		ingest.WithChunkDelay(time.Duration(cfg.Ingest.ChunkDelayMs)*time.Millisecond),
		ingest.WithLocation(loc))
	if err != nil {
		db.Close()
		return nil, err
	}

	engineOpts := []reports.EngineOption{}
	if cfg.Ingest.InvestmentTotal > 0 {
		engineOpts = append(engineOpts, reports.WithInvestment(cfg.Ingest.InvestmentTotal))
	}
	engine, err := reports.NewEngine(dailyRepo, frameRepo, ratesRepo, logger, engineOpts...)
	if err != nil {
		db.Close()
		return nil, err
	}

	poller, err := orders.NewPoller(client, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		client:   client,
		ingest:   svc,
		engine:   engine,
		rateRepo: ratesRepo,
		station:  stationRepo,
		poller:   poller,
		loc:      loc,
	}, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

func (a *app) stationID() (int64, error) {
	if a.cfg.Ingest.StationID == 0 {
		return 0, errors.New("no station configured; set SOLARSYNC_STATION_ID or ingest.station_id")
	}
	return a.cfg.Ingest.StationID, nil
}

func (a *app) deviceSN(ctx context.Context) (string, error) {
	id, err := a.stationID()
	if err != nil {
		return "", err
	}
	rec, err := a.station.Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("station %d not synced yet (run sync-stations): %w", id, err)
	}
	if rec.SerialNumber == "" {
		return "", fmt.Errorf("station %d has no device serial", id)
	}
	return rec.SerialNumber, nil
}

func (a *app) syncStations(ctx context.Context) error {
	n, err := a.ingest.SyncStations(ctx)
	if err != nil {
		return err
	}
	a.logger.Printf("synced %d stations", n)
	return nil
}

func (a *app) backfill(ctx context.Context, args []string, frames bool) error {
	start, end, err := parseRange(args, a.loc)
	if err != nil {
		return err
	}
	id, err := a.stationID()
	if err != nil {
		return err
	}

	var sum ingest.Summary
	if frames {
		sum, err = a.ingest.BackfillFrames(ctx, id, start, end)
	} else {
		sum, err = a.ingest.BackfillDaily(ctx, id, start, end)
	}
	if err != nil {
		return err
	}
	a.logger.Printf("backfill done: %d chunks (%d failed), %d rows written, %d skipped",
		sum.Chunks, sum.FailedChunks, sum.Written, sum.Skipped)
	if sum.FailedChunks > 0 {
		return fmt.Errorf("%d of %d chunks failed", sum.FailedChunks, sum.Chunks)
	}
	return nil
}

func (a *app) dailyUpdate(ctx context.Context) error {
	id, err := a.stationID()
	if err != nil {
		return err
	}
	sum, err := a.ingest.DailyUpdate(ctx, id)
	if err != nil {
		return err
	}
	if sum.FailedChunks > 0 {
		return errors.New("daily update failed")
	}
	a.logger.Printf("daily update done: %d rows written", sum.Written)
	return nil
}

func (a *app) rates(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("rates: missing subcommand")
	}
	switch args[0] {
	case "set", "add", "update":
		if len(args) != 5 {
			return fmt.Errorf("rates %s: want <year> <month> <sell> <buy>", args[0])
		}
		year, err1 := strconv.Atoi(args[1])
		month, err2 := strconv.Atoi(args[2])
		sell, err3 := strconv.ParseFloat(args[3], 64)
		buy, err4 := strconv.ParseFloat(args[4], 64)
		if err := errors.Join(err1, err2, err3, err4); err != nil {
			return fmt.Errorf("rates %s: %w", args[0], err)
		}
		return a.rateRepo.Set(ctx, store.GridRate{Year: year, Month: month, SellRateKWh: sell, BuyRateKWh: buy})
	case "list":
		all, err := a.rateRepo.List(ctx)
		if err != nil {
			return err
		}
		for _, r := range all {
			fmt.Printf("%d-%02d  sell %.4f  buy %.4f\n", r.Year, r.Month, r.SellRateKWh, r.BuyRateKWh)
		}
		if len(all) == 0 {
			fmt.Println("no rates recorded")
		}
		return nil
	case "delete":
		if len(args) != 3 {
			return errors.New("rates delete: want <year> <month>")
		}
		year, err1 := strconv.Atoi(args[1])
		month, err2 := strconv.Atoi(args[2])
		if err := errors.Join(err1, err2); err != nil {
			return fmt.Errorf("rates delete: %w", err)
		}
		return a.rateRepo.Delete(ctx, year, month)
	default:
		return fmt.Errorf("rates: unknown subcommand %q", args[0])
	}
}

func (a *app) report(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("report: missing subcommand")
	}
	id, err := a.stationID()
	if err != nil {
		return err
	}

	switch args[0] {
	case "month":
		if len(args) != 3 {
			return errors.New("report month: want <year> <month>")
		}
		year, err1 := strconv.Atoi(args[1])
		month, err2 := strconv.Atoi(args[2])
		if err := errors.Join(err1, err2); err != nil {
			return err
		}
		sum, err := a.engine.Monthly(ctx, id, year, time.Month(month))
		if err != nil {
			return err
		}
		return reports.WriteMonthlyText(os.Stdout, sum)
	case "billing":
		if len(args) != 3 {
			return errors.New("report billing: want <year> <month>")
		}
		year, err1 := strconv.Atoi(args[1])
		month, err2 := strconv.Atoi(args[2])
		if err := errors.Join(err1, err2); err != nil {
			return err
		}
		sum, err := a.engine.Billing(ctx, id, year, time.Month(month))
		if err != nil {
			return err
		}
		return reports.WriteBillingText(os.Stdout, sum)
	case "year":
		if len(args) != 2 {
			return errors.New("report year: want <year>")
		}
		year, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		sum, err := a.engine.Yearly(ctx, id, year)
		if err != nil {
			return err
		}
		return reports.WriteYearlyText(os.Stdout, sum)
	case "roi":
		if len(args) != 3 {
			return errors.New("report roi: want <from-year> <to-year>")
		}
		from, err1 := strconv.Atoi(args[1])
		to, err2 := strconv.Atoi(args[2])
		if err := errors.Join(err1, err2); err != nil {
			return err
		}
		roi, err := a.engine.ROI(ctx, id, from, to)
		if err != nil {
			return err
		}
		return reports.WriteROIText(os.Stdout, roi)
	case "range":
		if len(args) != 3 {
			return errors.New("report range: want <start> <end>")
		}
		start, end, err := parseRange(args[1:], a.loc)
		if err != nil {
			return err
		}
		sum, err := a.engine.Range(ctx, id, start, end)
		if err != nil {
			return err
		}
		return reports.WriteRangeText(os.Stdout, sum)
	case "recent":
		if len(args) != 2 {
			return errors.New("report recent: want <days|last7|last30>")
		}
		n, err := parseDayCount(args[1])
		if err != nil {
			return err
		}
		sum, err := a.engine.RecentDays(ctx, id, n)
		if err != nil {
			return err
		}
		return reports.WriteRangeText(os.Stdout, sum)
	case "frames":
		if len(args) != 2 {
			return errors.New("report frames: want <date>")
		}
		day, err := time.ParseInLocation("2006-01-02", args[1], a.loc)
		if err != nil {
			return err
		}
		sum, err := a.engine.Frames(ctx, id, day)
		if err != nil {
			return err
		}
		return reports.WriteFrameText(os.Stdout, sum)
	default:
		return fmt.Errorf("report: unknown subcommand %q", args[0])
	}
}

func (a *app) export(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("export: want <year> <file.xlsx|file.pdf>")
	}
	year, err := strconv.Atoi(args[0])
	if err != nil {
		return err
	}
	id, err := a.stationID()
	if err != nil {
		return err
	}
	sum, err := a.engine.Yearly(ctx, id, year)
	if err != nil {
		return err
	}
	if err := reports.Export(sum, args[1]); err != nil {
		return err
	}
	a.logger.Printf("wrote %s", args[1])
	return nil
}

func (a *app) control(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errors.New("control: want read|write <addr> <value-or-count>")
	}
	addr, err := parseUint16(args[1])
	if err != nil {
		return err
	}
	arg, err := parseUint16(args[2])
	if err != nil {
		return err
	}

	var frame string
	switch args[0] {
	case "read":
		frame, err = commission.ReadHoldingFrame(addr, arg)
	case "write":
		frame, err = commission.WriteSingleFrame(addr, arg)
	default:
		return fmt.Errorf("control: unknown subcommand %q", args[0])
	}
	if err != nil {
		return err
	}

	sn, err := a.deviceSN(ctx)
	if err != nil {
		return err
	}
	order, err := a.poller.Run(ctx, sn, frame, 0)
	if err != nil {
		return err
	}
	if order.AnalysisResult == "" {
		a.logger.Printf("order %d succeeded", order.OrderID)
		return nil
	}
	resp, err := commission.ParseResponse(order.AnalysisResult)
	if err != nil {
		return fmt.Errorf("order %d succeeded but reply is unreadable: %w", order.OrderID, err)
	}
	if resp.Failed() {
		return fmt.Errorf("inverter rejected the request (exception %02X)", resp.Exception)
	}
	for i, reg := range resp.Registers {
		fmt.Printf("register[%d] = 0x%04X (%d)\n", i, reg, reg)
	}
	return nil
}

func (a *app) strategy(ctx context.Context, args []string) error {
	if len(args) < 1 {
		names := make([]string, 0, len(strategy.Presets()))
		for _, p := range strategy.Presets() {
			names = append(names, string(p))
		}
		return fmt.Errorf("strategy: want one of %s", strings.Join(names, ", "))
	}
	sn, err := a.deviceSN(ctx)
	if err != nil {
		return err
	}
	preset := strategy.Preset(args[0])
	if preset == "feed-in" {
		preset = strategy.PresetFeedInGrid
	}
	req, err := strategy.Build(preset, sn, args[1:])
	if err != nil {
		return err
	}
	if err := a.client.DynamicControl(ctx, req); err != nil {
		return err
	}
	a.logger.Printf("applied %s to %s", args[0], sn)
	return nil
}

func parseRange(args []string, loc *time.Location) (time.Time, time.Time, error) {
	switch len(args) {
	case 1:
		n, err := parseDayCount(args[0])
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("want <start> <end> dates, last7, or last30")
		}
		end := time.Now().In(loc).AddDate(0, 0, -1)
		return end.AddDate(0, 0, -(n - 1)), end, nil
	case 2:
		start, err := time.ParseInLocation("2006-01-02", args[0], loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad start date %q", args[0])
		}
		end, err := time.ParseInLocation("2006-01-02", args[1], loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad end date %q", args[1])
		}
		return start, end, nil
	default:
		return time.Time{}, time.Time{}, errors.New("want <start> <end> dates, last7, or last30")
	}
}

func parseDayCount(s string) (int, error) {
	switch s {
	case "last7":
		return 7, nil
	case "last30":
		return 30, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("bad day count %q", s)
	}
	return n, nil
}

func parseUint16(s string) (uint16, error) {
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	v, err := strconv.ParseUint(s, base, 16)
	if err != nil {
		return 0, fmt.Errorf("bad register value %q", s)
	}
	return uint16(v), nil
}
