package core

import "fmt"

// ReportRequest asks the backend to build a report. Dates are only sent for
// custom periods.
type ReportRequest struct {
	Period    ReportPeriod `json:"period"`
	StartDate string       `json:"start_date,omitempty"`
	EndDate   string       `json:"end_date,omitempty"`
}

// Report is a generated report as returned by /reports/generate/.
type Report struct {
	ID          string     `json:"id"`
	PeriodStart string     `json:"period_start"`
	PeriodEnd   string     `json:"period_end"`
	Data        ReportData `json:"data"`
}

type ReportData struct {
	Period struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	} `json:"period"`
	Summary    ReportSummary     `json:"summary"`
	ByCategory []CategoryTotal   `json:"by_category"`
	Comparison *ReportComparison `json:"comparison,omitempty"`
}

type ReportSummary struct {
	TotalIncome       Money `json:"total_income"`
	TotalExpense      Money `json:"total_expense"`
	Balance           Money `json:"balance"`
	TransactionsCount int   `json:"transactions_count"`
}

type ReportComparison struct {
	PreviousPeriod struct {
		StartDate    string `json:"start_date"`
		EndDate      string `json:"end_date"`
		TotalIncome  Money  `json:"total_income"`
		TotalExpense Money  `json:"total_expense"`
		Balance      Money  `json:"balance"`
	} `json:"previous_period"`
	Changes struct {
		IncomePct  *float64 `json:"income_pct"`
		ExpensePct *float64 `json:"expense_pct"`
		BalancePct *float64 `json:"balance_pct"`
	} `json:"changes"`
}

// Validate checks the period and, for custom periods, the date range.
func (r ReportRequest) Validate() error {
	switch r.Period {
	case PeriodMonth, PeriodQuarter, PeriodYear:
	case PeriodCustom:
		if err := ValidateDate(r.StartDate); err != nil {
			return fmt.Errorf("start date: %w", err)
		}
		if err := ValidateDate(r.EndDate); err != nil {
			return fmt.Errorf("end date: %w", err)
		}
		if r.EndDate < r.StartDate {
			return fmt.Errorf("end date before start date: %w", ErrInvalidDate)
		}
	default:
		return fmt.Errorf("unknown report period %q", r.Period)
	}
	return nil
}

// FormatChange renders a period-over-period change. The backend sends null
// when the previous period is zero.
func FormatChange(pct *float64) string {
	if pct == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", *pct)
}
