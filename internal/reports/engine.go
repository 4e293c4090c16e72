// Package reports aggregates ingested telemetry into energy and financial
// summaries. Energy summaries bucket by calendar month; financial summaries
// bucket by billing month, the calendar month shifted back by the utility's
// meter-reading offset, joined against the grid rate table.
package reports

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"solarsync/internal/store"
)

// ErrNoData is returned when a summary window holds no ingested rows.
var ErrNoData = errors.New("reports: no data found")

const (
	// DefaultBillingShiftDays places a sample date into its utility billing
	// cycle: billing month = calendar month of date minus the shift.
	DefaultBillingShiftDays = 25
	// DefaultInvestment is the plant investment the ROI report amortizes.
	DefaultInvestment = 750000.0

	dateLayout = "2006-01-02"
)

// MonthlySummary aggregates one calendar month of energy for one station.
// It carries no monetary fields; those live on BillingSummary.
type MonthlySummary struct {
	Year  int
	Month time.Month
	Days  int

	GenerationKWh  float64
	FeedInKWh      float64
	PurchasedKWh   float64
	ChargedKWh     float64
	DischargedKWh  float64
	ConsumptionKWh float64

	// Per-day generation statistics over days that reported a value.
	AvgGenerationKWh float64
	BestDayKWh       float64
	WorstDayKWh      float64

	// Generation over consumption, zero when no consumption was recorded.
	SelfSufficiencyPct float64
}

// BillingSummary is the rate-joined financial view of one billing month.
// Generated counts battery throughput on top of PV generation, so it is the
// energy the plant moved rather than the energy it produced.
type BillingSummary struct {
	Year  int
	Month time.Month
	Days  int

	GeneratedKWh float64
	FeedInKWh    float64
	PurchasedKWh float64

	// Monetary fields are zero and HasRate false when grid_rates has no row
	// for the billing month.
	HasRate         bool
	SellRate        float64
	BuyRate         float64
	GeneratedIncome float64
	FeedInIncome    float64
	PurchaseValue   float64
	TotalIncome     float64
}

// YearlySummary collects the billing months of one year plus totals.
type YearlySummary struct {
	Year   int
	Months []BillingSummary

	GeneratedKWh float64
	FeedInKWh    float64
	PurchasedKWh float64

	GeneratedIncome float64
	FeedInIncome    float64
	PurchaseValue   float64
	TotalIncome     float64
}

// ROIReport relates cumulative income to the plant investment.
type ROIReport struct {
	Investment    float64
	TotalKWh      float64
	TotalIncome   float64
	MonthsCovered int

	AvgKWhPerMonth    float64
	AvgIncomePerMonth float64
	RemainingValue    float64
	RemainingMonths   float64
}

// RangeSummary totals raw daily rows without rate joins.
type RangeSummary struct {
	Start time.Time
	End   time.Time
	Days  int

	GenerationKWh  float64
	FeedInKWh      float64
	PurchasedKWh   float64
	ConsumptionKWh float64
	Rows           []store.DailyRecord
}

// FrameSummary condenses one day of power samples.
type FrameSummary struct {
	Date    string
	Samples int

	PeakProductionKW float64
	AvgProductionKW  float64
	MinSOCPct        float64
	MaxSOCPct        float64
}

// Engine computes summaries from the local store.
type Engine struct {
	daily  *store.DailyRepository
	frames *store.FrameRepository
	rates  *store.RatesRepository
	logger *log.Logger

	shiftDays  int
	investment float64
}

// NewEngine constructs a report engine.
func NewEngine(
	daily *store.DailyRepository,
	frames *store.FrameRepository,
	rates *store.RatesRepository,
	logger *log.Logger,
	opts ...EngineOption,
) (*Engine, error) {
	if daily == nil || frames == nil || rates == nil {
		return nil, errors.New("reports: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	e := &Engine{
		daily:      daily,
		frames:     frames,
		rates:      rates,
		logger:     logger,
		shiftDays:  DefaultBillingShiftDays,
		investment: DefaultInvestment,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithBillingShift overrides the billing cycle offset in days.
func WithBillingShift(days int) EngineOption {
	return func(e *Engine) {
		if days >= 0 {
			e.shiftDays = days
		}
	}
}

// WithInvestment overrides the ROI investment base.
func WithInvestment(amount float64) EngineOption {
	return func(e *Engine) {
		if amount > 0 {
			e.investment = amount
		}
	}
}

// BillingMonth returns the billing cycle a sample date belongs to.
func (e *Engine) BillingMonth(d time.Time) (int, time.Month) {
	shifted := d.AddDate(0, 0, -e.shiftDays)
	return shifted.Year(), shifted.Month()
}

// Monthly aggregates one calendar month of energy. ErrNoData when no rows
// fall into it.
func (e *Engine) Monthly(ctx context.Context, stationID int64, year int, month time.Month) (MonthlySummary, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	rows, err := e.daily.Range(ctx, stationID, first.Format(dateLayout), last.Format(dateLayout))
	if err != nil {
		return MonthlySummary{}, err
	}
	if len(rows) == 0 {
		return MonthlySummary{}, fmt.Errorf("month %d-%02d: %w", year, int(month), ErrNoData)
	}

	sum := MonthlySummary{Year: year, Month: month, Days: len(rows)}
	genDays := 0
	for _, row := range rows {
		sum.FeedInKWh += deref(row.FeedInKWh)
		sum.PurchasedKWh += deref(row.PurchasedKWh)
		sum.ChargedKWh += deref(row.ChargedKWh)
		sum.DischargedKWh += deref(row.DischargedKWh)
		sum.ConsumptionKWh += deref(row.ConsumptionKWh)
		if row.ProductionKWh == nil {
			continue
		}
		gen := *row.ProductionKWh
		sum.GenerationKWh += gen
		if genDays == 0 || gen > sum.BestDayKWh {
			sum.BestDayKWh = gen
		}
		if genDays == 0 || gen < sum.WorstDayKWh {
			sum.WorstDayKWh = gen
		}
		genDays++
	}
	if genDays > 0 {
		sum.AvgGenerationKWh = sum.GenerationKWh / float64(genDays)
	}
	if sum.ConsumptionKWh > 0 {
		sum.SelfSufficiencyPct = sum.GenerationKWh / sum.ConsumptionKWh * 100
	}
	return sum, nil
}

// Billing aggregates one billing month and joins it against the grid rate
// table. Generated energy and feed-in are each weighted by their tariff;
// purchase is valued at the sell rate for comparison against own production.
func (e *Engine) Billing(ctx context.Context, stationID int64, year int, month time.Month) (BillingSummary, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	start := first.AddDate(0, 0, e.shiftDays)
	end := last.AddDate(0, 0, e.shiftDays)

	rows, err := e.daily.Range(ctx, stationID, start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return BillingSummary{}, err
	}
	if len(rows) == 0 {
		return BillingSummary{}, fmt.Errorf("billing month %d-%02d: %w", year, int(month), ErrNoData)
	}

	sum := BillingSummary{Year: year, Month: month, Days: len(rows)}
	for _, row := range rows {
		sum.GeneratedKWh += deref(row.ProductionKWh) + deref(row.ChargedKWh) + deref(row.DischargedKWh)
		sum.FeedInKWh += deref(row.FeedInKWh)
		sum.PurchasedKWh += deref(row.PurchasedKWh)
	}

	rate, err := e.rates.Get(ctx, year, int(month))
	switch {
	case errors.Is(err, store.ErrRateNotFound):
		e.logger.Printf("reports: no grid rate for %d-%02d, monetary fields omitted", year, int(month))
	case err != nil:
		return BillingSummary{}, err
	default:
		sum.HasRate = true
		sum.SellRate = rate.SellRateKWh
		sum.BuyRate = rate.BuyRateKWh
		sum.GeneratedIncome = Round2(sum.GeneratedKWh * rate.SellRateKWh)
		sum.FeedInIncome = Round2(sum.FeedInKWh * rate.BuyRateKWh)
		sum.PurchaseValue = Round2(sum.PurchasedKWh * rate.SellRateKWh)
		sum.TotalIncome = Round2(sum.GeneratedIncome + sum.FeedInIncome)
	}
	return sum, nil
}

// Yearly aggregates every billing month of a year that has data.
func (e *Engine) Yearly(ctx context.Context, stationID int64, year int) (YearlySummary, error) {
	out := YearlySummary{Year: year}
	for m := time.January; m <= time.December; m++ {
		sum, err := e.Billing(ctx, stationID, year, m)
		if errors.Is(err, ErrNoData) {
			continue
		}
		if err != nil {
			return YearlySummary{}, err
		}
		out.Months = append(out.Months, sum)
		out.GeneratedKWh += sum.GeneratedKWh
		out.FeedInKWh += sum.FeedInKWh
		out.PurchasedKWh += sum.PurchasedKWh
		out.GeneratedIncome += sum.GeneratedIncome
		out.FeedInIncome += sum.FeedInIncome
		out.PurchaseValue += sum.PurchaseValue
		out.TotalIncome += sum.TotalIncome
	}
	if len(out.Months) == 0 {
		return YearlySummary{}, fmt.Errorf("year %d: %w", year, ErrNoData)
	}
	out.GeneratedIncome = Round2(out.GeneratedIncome)
	out.FeedInIncome = Round2(out.FeedInIncome)
	out.PurchaseValue = Round2(out.PurchaseValue)
	out.TotalIncome = Round2(out.TotalIncome)
	return out, nil
}

// ROI walks all billing months between two years and relates the running
// generation income to the investment. Months without a grid rate still
// count toward energy and the month tally, matching the rate table being a
// best-effort record.
func (e *Engine) ROI(ctx context.Context, stationID int64, fromYear, toYear int) (ROIReport, error) {
	if fromYear > toYear {
		return ROIReport{}, errors.New("reports: roi range reversed")
	}
	report := ROIReport{Investment: e.investment}
	for year := fromYear; year <= toYear; year++ {
		sum, err := e.Yearly(ctx, stationID, year)
		if errors.Is(err, ErrNoData) {
			continue
		}
		if err != nil {
			return ROIReport{}, err
		}
		for _, m := range sum.Months {
			report.TotalKWh += m.GeneratedKWh + m.FeedInKWh
			report.TotalIncome += m.TotalIncome
		}
		report.MonthsCovered += len(sum.Months)
	}
	if report.MonthsCovered == 0 {
		return ROIReport{}, fmt.Errorf("years %d..%d: %w", fromYear, toYear, ErrNoData)
	}
	report.TotalIncome = Round2(report.TotalIncome)
	report.AvgKWhPerMonth = Round2(report.TotalKWh / float64(report.MonthsCovered))
	report.AvgIncomePerMonth = Round2(report.TotalIncome / float64(report.MonthsCovered))
	report.RemainingValue = Round2(report.Investment - report.TotalIncome)
	if report.AvgIncomePerMonth > 0 {
		report.RemainingMonths = Round2(report.RemainingValue / report.AvgIncomePerMonth)
	}
	return report, nil
}

// Range totals raw daily rows between two dates, both inclusive.
func (e *Engine) Range(ctx context.Context, stationID int64, start, end time.Time) (RangeSummary, error) {
	rows, err := e.daily.Range(ctx, stationID, start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return RangeSummary{}, err
	}
	if len(rows) == 0 {
		return RangeSummary{}, fmt.Errorf("range %s..%s: %w",
			start.Format(dateLayout), end.Format(dateLayout), ErrNoData)
	}

	sum := RangeSummary{Start: start, End: end, Days: len(rows), Rows: rows}
	for _, row := range rows {
		sum.GenerationKWh += deref(row.ProductionKWh)
		sum.FeedInKWh += deref(row.FeedInKWh)
		sum.PurchasedKWh += deref(row.PurchasedKWh)
		sum.ConsumptionKWh += deref(row.ConsumptionKWh)
	}
	return sum, nil
}

// RecentDays totals the n days ending yesterday.
func (e *Engine) RecentDays(ctx context.Context, stationID int64, n int) (RangeSummary, error) {
	if n < 1 {
		return RangeSummary{}, errors.New("reports: day count must be positive")
	}
	end := time.Now().AddDate(0, 0, -1)
	start := end.AddDate(0, 0, -(n - 1))
	return e.Range(ctx, stationID, start, end)
}

// Frames condenses the power samples of one day.
func (e *Engine) Frames(ctx context.Context, stationID int64, date time.Time) (FrameSummary, error) {
	day := date.Format(dateLayout)
	rows, err := e.frames.Range(ctx, stationID, day+" 00:00:00", day+" 23:59:59")
	if err != nil {
		return FrameSummary{}, err
	}
	if len(rows) == 0 {
		return FrameSummary{}, fmt.Errorf("frames %s: %w", day, ErrNoData)
	}

	sum := FrameSummary{Date: day, Samples: len(rows), MinSOCPct: math.NaN(), MaxSOCPct: math.NaN()}
	production := 0.0
	productionSamples := 0
	for _, row := range rows {
		if row.ProductionPowerKW != nil {
			kw := *row.ProductionPowerKW
			production += kw
			productionSamples++
			if kw > sum.PeakProductionKW {
				sum.PeakProductionKW = kw
			}
		}
		if row.BatterySOCPct != nil {
			soc := *row.BatterySOCPct
			if math.IsNaN(sum.MinSOCPct) || soc < sum.MinSOCPct {
				sum.MinSOCPct = soc
			}
			if math.IsNaN(sum.MaxSOCPct) || soc > sum.MaxSOCPct {
				sum.MaxSOCPct = soc
			}
		}
	}
	if productionSamples > 0 {
		sum.AvgProductionKW = production / float64(productionSamples)
	}
	return sum, nil
}

// Round2 rounds a monetary value to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
