package core

import (
	"errors"
	"testing"
)

func validInput() TransactionInput {
	return TransactionInput{
		Description: "Groceries",
		Amount:      Money{Cents: 4590},
		Type:        TypeExpense,
		Status:      StatusConfirmed,
		Date:        "2025-03-14",
		Account:     "acc-1",
		Category:    "cat-1",
	}
}

func TestTransactionInputValidate(t *testing.T) {
	if err := validInput().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*TransactionInput)
		want   error
	}{
		{"blank description", func(in *TransactionInput) { in.Description = "  " }, ErrEmptyDescription},
		{"zero amount", func(in *TransactionInput) { in.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(in *TransactionInput) { in.Amount = Money{Cents: -5} }, ErrInvalidAmount},
		{"unknown type", func(in *TransactionInput) { in.Type = "TRANSFER" }, ErrInvalidType},
		{"unknown status", func(in *TransactionInput) { in.Status = "DONE" }, ErrInvalidStatus},
		{"bad date", func(in *TransactionInput) { in.Date = "14/03/2025" }, ErrInvalidDate},
		{"impossible date", func(in *TransactionInput) { in.Date = "2025-02-30" }, ErrInvalidDate},
		{"missing account", func(in *TransactionInput) { in.Account = "" }, ErrEmptyAccount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			if err := in.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAccountAndCategoryValidate(t *testing.T) {
	if err := (AccountInput{Name: "Wallet", Type: AccountCash}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (AccountInput{Name: "Wallet", Type: "PIGGY"}).Validate(); !errors.Is(err, ErrInvalidAccountType) {
		t.Errorf("expected ErrInvalidAccountType, got %v", err)
	}
	if err := (CategoryInput{Name: "", Type: TypeIncome}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Errorf("expected ErrEmptyName, got %v", err)
	}
	if err := (CategoryInput{Name: "Salary", Type: TypeIncome}).Validate(); err != nil {
		t.Errorf("expected ok, got %v", err)
	}
}

func TestParseTags(t *testing.T) {
	got := ParseTags(" food, , weekly ,")
	if len(got) != 2 || got[0] != "food" || got[1] != "weekly" {
		t.Fatalf("ParseTags = %v", got)
	}
	if got := ParseTags(""); got == nil || len(got) != 0 {
		t.Fatalf("ParseTags(\"\") = %#v, want empty slice", got)
	}
}

func TestTransactionFilterQuery(t *testing.T) {
	f := TransactionFilter{
		Search:           "rent",
		Type:             TypeExpense,
		Ordering:         "-date",
		IncludeCancelled: true,
	}
	q := f.Query(0)

	want := map[string]string{
		"search":            "rent",
		"type":              "EXPENSE",
		"ordering":          "-date",
		"include_cancelled": "true",
		"page":              "1",
	}
	for k, v := range want {
		if got := q.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	for _, k := range []string{"account", "category", "status", "start_date", "end_date"} {
		if q.Has(k) {
			t.Errorf("unexpected %s in query", k)
		}
	}
	if got := (TransactionFilter{}).Query(3).Encode(); got != "page=3" {
		t.Errorf("empty filter encodes to %q", got)
	}
}

func TestReportRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     ReportRequest
		wantErr bool
	}{
		{"month", ReportRequest{Period: PeriodMonth}, false},
		{"year", ReportRequest{Period: PeriodYear}, false},
		{"custom ok", ReportRequest{Period: PeriodCustom, StartDate: "2025-01-01", EndDate: "2025-01-31"}, false},
		{"custom missing dates", ReportRequest{Period: PeriodCustom}, true},
		{"custom reversed", ReportRequest{Period: PeriodCustom, StartDate: "2025-02-01", EndDate: "2025-01-01"}, true},
		{"unknown", ReportRequest{Period: "week"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFormatChange(t *testing.T) {
	pct := func(v float64) *float64 { return &v }
	tests := []struct {
		in   *float64
		want string
	}{
		{nil, "N/A"},
		{pct(12.345), "12.3%"},
		{pct(-4.25), "-4.2%"},
		{pct(0), "0.0%"},
	}
	for _, tt := range tests {
		if got := FormatChange(tt.in); got != tt.want {
			t.Errorf("FormatChange() = %q, want %q", got, tt.want)
		}
	}
}
