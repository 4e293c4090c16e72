package reports

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteMonthlyText renders a calendar-month energy summary.
func WriteMonthlyText(w io.Writer, sum MonthlySummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Month\t%d-%02d\n", sum.Year, int(sum.Month))
	fmt.Fprintf(tw, "Days with data\t%d\n", sum.Days)
	fmt.Fprintf(tw, "Generation\t%.1f kWh (avg %.1f, best %.1f, worst %.1f)\n",
		sum.GenerationKWh, sum.AvgGenerationKWh, sum.BestDayKWh, sum.WorstDayKWh)
	fmt.Fprintf(tw, "Grid feed-in\t%.1f kWh\n", sum.FeedInKWh)
	fmt.Fprintf(tw, "Grid purchase\t%.1f kWh\n", sum.PurchasedKWh)
	fmt.Fprintf(tw, "Battery charge\t%.1f kWh\n", sum.ChargedKWh)
	fmt.Fprintf(tw, "Battery discharge\t%.1f kWh\n", sum.DischargedKWh)
	fmt.Fprintf(tw, "Consumption\t%.1f kWh\n", sum.ConsumptionKWh)
	fmt.Fprintf(tw, "Self-sufficiency\t%.1f%%\n", sum.SelfSufficiencyPct)
	return tw.Flush()
}

// WriteBillingText renders a billing-month financial summary.
func WriteBillingText(w io.Writer, sum BillingSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Billing month\t%d-%02d\n", sum.Year, int(sum.Month))
	fmt.Fprintf(tw, "Days with data\t%d\n", sum.Days)
	fmt.Fprintf(tw, "Generated\t%.1f kWh\n", sum.GeneratedKWh)
	fmt.Fprintf(tw, "Grid feed-in\t%.1f kWh\n", sum.FeedInKWh)
	fmt.Fprintf(tw, "Grid purchase\t%.1f kWh\n", sum.PurchasedKWh)
	if sum.HasRate {
		fmt.Fprintf(tw, "Generated income\t%.2f (@%.4f/kWh)\n", sum.GeneratedIncome, sum.SellRate)
		fmt.Fprintf(tw, "Feed-in income\t%.2f (@%.4f/kWh)\n", sum.FeedInIncome, sum.BuyRate)
		fmt.Fprintf(tw, "Purchase value\t%.2f\n", sum.PurchaseValue)
		fmt.Fprintf(tw, "Total income\t%.2f\n", sum.TotalIncome)
	} else {
		fmt.Fprintf(tw, "Income\tno grid rate recorded for this month\n")
	}
	return tw.Flush()
}

// WriteYearlyText renders a yearly summary with one line per billing month.
func WriteYearlyText(w io.Writer, sum YearlySummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Month\tDays\tGenerated kWh\tFeed-in kWh\tPurchase kWh\tIncome\n")
	for _, m := range sum.Months {
		fmt.Fprintf(tw, "%d-%02d\t%d\t%.1f\t%.1f\t%.1f\t%.2f\n",
			m.Year, int(m.Month), m.Days, m.GeneratedKWh, m.FeedInKWh, m.PurchasedKWh, m.TotalIncome)
	}
	fmt.Fprintf(tw, "Total\t\t%.1f\t%.1f\t%.1f\t%.2f\n",
		sum.GeneratedKWh, sum.FeedInKWh, sum.PurchasedKWh, sum.TotalIncome)
	return tw.Flush()
}

// WriteRangeText renders a raw date-range summary.
func WriteRangeText(w io.Writer, sum RangeSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Date\tGeneration kWh\tFeed-in kWh\tPurchase kWh\tConsumption kWh\n")
	for _, row := range sum.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			row.Date,
			cell(row.ProductionKWh),
			cell(row.FeedInKWh),
			cell(row.PurchasedKWh),
			cell(row.ConsumptionKWh))
	}
	fmt.Fprintf(tw, "Total (%d days)\t%.1f\t%.1f\t%.1f\t%.1f\n",
		sum.Days, sum.GenerationKWh, sum.FeedInKWh, sum.PurchasedKWh, sum.ConsumptionKWh)
	return tw.Flush()
}

// WriteROIText renders an ROI report.
func WriteROIText(w io.Writer, r ROIReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Investment\t%.2f\n", r.Investment)
	fmt.Fprintf(tw, "Income to date\t%.2f\n", r.TotalIncome)
	fmt.Fprintf(tw, "Energy to date\t%.1f kWh\n", r.TotalKWh)
	fmt.Fprintf(tw, "Billing months covered\t%d\n", r.MonthsCovered)
	fmt.Fprintf(tw, "Average per month\t%.1f kWh, %.2f\n", r.AvgKWhPerMonth, r.AvgIncomePerMonth)
	fmt.Fprintf(tw, "Remaining\t%.2f (%.1f months)\n", r.RemainingValue, r.RemainingMonths)
	return tw.Flush()
}

// WriteFrameText renders a one-day frame summary.
func WriteFrameText(w io.Writer, sum FrameSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Date\t%s\n", sum.Date)
	fmt.Fprintf(tw, "Samples\t%d\n", sum.Samples)
	fmt.Fprintf(tw, "Peak production\t%.2f kW\n", sum.PeakProductionKW)
	fmt.Fprintf(tw, "Avg production\t%.2f kW\n", sum.AvgProductionKW)
	fmt.Fprintf(tw, "Battery SOC\t%.0f%%..%.0f%%\n", sum.MinSOCPct, sum.MaxSOCPct)
	return tw.Flush()
}

func cell(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}
