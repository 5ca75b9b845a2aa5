package core

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format exchanged with the backend.
const DateLayout = "2006-01-02"

const (
	TypeIncome  TransactionType = "INCOME"
	TypeExpense TransactionType = "EXPENSE"

	StatusPending   TransactionStatus = "PENDING"
	StatusConfirmed TransactionStatus = "CONFIRMED"
	StatusCancelled TransactionStatus = "CANCELLED"

	AccountChecking   AccountType = "CHECKING"
	AccountSavings    AccountType = "SAVINGS"
	AccountCreditCard AccountType = "CREDIT_CARD"
	AccountCash       AccountType = "CASH"
	AccountInvestment AccountType = "INVESTMENT"

	PeriodMonth   ReportPeriod = "month"
	PeriodQuarter ReportPeriod = "quarter"
	PeriodYear    ReportPeriod = "year"
	PeriodCustom  ReportPeriod = "custom"
)

type (
	TransactionType   string
	TransactionStatus string
	AccountType       string
	ReportPeriod      string

	User struct {
		ID              string `json:"id"`
		Username        string `json:"username"`
		Email           string `json:"email"`
		FirstName       string `json:"first_name"`
		LastName        string `json:"last_name"`
		FullName        string `json:"full_name,omitempty"`
		Phone           string `json:"phone,omitempty"`
		AvatarURL       string `json:"avatar_url,omitempty"`
		DefaultCurrency string `json:"default_currency,omitempty"`
		Theme           string `json:"theme,omitempty"`
		IsActive        *bool  `json:"is_active,omitempty"`
	}

	Account struct {
		ID             string      `json:"id"`
		Name           string      `json:"name"`
		Type           AccountType `json:"type"`
		TypeDisplay    string      `json:"type_display"`
		Currency       string      `json:"currency,omitempty"`
		Color          string      `json:"color,omitempty"`
		InitialBalance Money       `json:"initial_balance"`
		CurrentBalance Money       `json:"current_balance"`
		IsActive       *bool       `json:"is_active,omitempty"`
		CreatedAt      string      `json:"created_at"`
		UpdatedAt      string      `json:"updated_at,omitempty"`
	}

	AccountInput struct {
		Name           string      `json:"name"`
		Type           AccountType `json:"type"`
		Currency       string      `json:"currency,omitempty"`
		Color          string      `json:"color,omitempty"`
		InitialBalance Money       `json:"initial_balance"`
		IsActive       *bool       `json:"is_active,omitempty"`
	}

	Category struct {
		ID                string          `json:"id"`
		Name              string          `json:"name"`
		Type              TransactionType `json:"type"`
		TypeDisplay       string          `json:"type_display"`
		Icon              string          `json:"icon"`
		Color             string          `json:"color,omitempty"`
		Description       string          `json:"description,omitempty"`
		IsSystem          bool            `json:"is_system"`
		TransactionsCount int             `json:"transactions_count"`
		CreatedAt         string          `json:"created_at,omitempty"`
		UpdatedAt         string          `json:"updated_at,omitempty"`
	}

	CategoryInput struct {
		Name        string          `json:"name"`
		Type        TransactionType `json:"type"`
		Icon        string          `json:"icon"`
		Color       string          `json:"color,omitempty"`
		Description string          `json:"description,omitempty"`
	}

	Transaction struct {
		ID              string            `json:"id"`
		Description     string            `json:"description"`
		Amount          Money             `json:"amount"`
		Type            TransactionType   `json:"type"`
		TypeDisplay     string            `json:"type_display"`
		Status          TransactionStatus `json:"status,omitempty"`
		StatusDisplay   string            `json:"status_display,omitempty"`
		Date            string            `json:"date"`
		TransactionDate string            `json:"transaction_date,omitempty"`
		Account         string            `json:"account"`
		Category        string            `json:"category"`
		AccountName     string            `json:"account_name,omitempty"`
		CategoryName    string            `json:"category_name,omitempty"`
		CategoryIcon    string            `json:"category_icon,omitempty"`
		Tags            []string          `json:"tags,omitempty"`
		Notes           string            `json:"notes,omitempty"`
		ReceiptURL      string            `json:"receipt_url,omitempty"`
		IsReconciled    bool              `json:"is_reconciled,omitempty"`
		CreatedAt       string            `json:"created_at"`
		UpdatedAt       string            `json:"updated_at,omitempty"`
	}

	TransactionInput struct {
		Description  string            `json:"description"`
		Amount       Money             `json:"amount"`
		Type         TransactionType   `json:"type"`
		Status       TransactionStatus `json:"status"`
		Date         string            `json:"date"`
		Account      string            `json:"account"`
		Category     string            `json:"category"`
		Notes        string            `json:"notes"`
		ReceiptURL   string            `json:"receipt_url"`
		IsReconciled bool              `json:"is_reconciled"`
		Tags         []string          `json:"tags"`
	}

	// TransactionFilter mirrors the query parameters of the transaction list.
	TransactionFilter struct {
		Search           string
		Type             TransactionType
		Account          string
		Category         string
		Status           TransactionStatus
		StartDate        string
		EndDate          string
		Ordering         string
		IncludeCancelled bool
	}

	TransactionPage struct {
		Count    int           `json:"count"`
		Next     string        `json:"next"`
		Previous string        `json:"previous"`
		Results  []Transaction `json:"results"`
	}

	CategoryTotal struct {
		Name       string   `json:"category__name"`
		Icon       string   `json:"category__icon,omitempty"`
		Total      Money    `json:"total"`
		Count      int      `json:"count"`
		Percentage *float64 `json:"percentage,omitempty"`
	}

	Dashboard struct {
		TotalBalance Money           `json:"total_balance"`
		MonthIncome  Money           `json:"month_income"`
		MonthExpense Money           `json:"month_expense"`
		MonthBalance Money           `json:"month_balance"`
		TopExpenses  []CategoryTotal `json:"top_expenses"`
	}

	MonthlyPoint struct {
		Month   string `json:"month"`
		Year    int    `json:"year"`
		Income  Money  `json:"income"`
		Expense Money  `json:"expense"`
		Balance Money  `json:"balance"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyAccount       = errors.New("empty account")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidStatus      = errors.New("invalid transaction status")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrEmptyName          = errors.New("empty name")
)

// IsValid reports whether t is a type the backend accepts.
func (t TransactionType) IsValid() bool {
	switch t {
	case TypeIncome, TypeExpense:
		return true
	default:
		return false
	}
}

// IsValid reports whether s is a status the backend accepts. Empty means
// "let the backend default it".
func (s TransactionStatus) IsValid() bool {
	switch s {
	case "", StatusPending, StatusConfirmed, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsValid reports whether t is one of the known account types.
func (t AccountType) IsValid() bool {
	switch t {
	case AccountChecking, AccountSavings, AccountCreditCard, AccountCash, AccountInvestment:
		return true
	default:
		return false
	}
}

// ValidateDate checks a YYYY-MM-DD calendar date.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return ErrInvalidDate
	}
	return nil
}

func (in TransactionInput) Validate() error {
	if strings.TrimSpace(in.Description) == "" {
		return ErrEmptyDescription
	}
	if in.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if !in.Type.IsValid() {
		return ErrInvalidType
	}
	if !in.Status.IsValid() {
		return ErrInvalidStatus
	}
	if err := ValidateDate(in.Date); err != nil {
		return err
	}
	if strings.TrimSpace(in.Account) == "" {
		return ErrEmptyAccount
	}
	return nil
}

func (in AccountInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrEmptyName
	}
	if !in.Type.IsValid() {
		return ErrInvalidAccountType
	}
	return nil
}

func (in CategoryInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrEmptyName
	}
	if !in.Type.IsValid() {
		return ErrInvalidType
	}
	return nil
}

// ParseTags splits a comma separated tag list, dropping blanks.
func ParseTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Query encodes the filter for the given page. Empty fields are omitted.
func (f TransactionFilter) Query(page int) url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("search", f.Search)
	set("type", string(f.Type))
	set("account", f.Account)
	set("category", f.Category)
	set("status", string(f.Status))
	set("start_date", f.StartDate)
	set("end_date", f.EndDate)
	set("ordering", f.Ordering)
	if f.IncludeCancelled {
		q.Set("include_cancelled", "true")
	}
	if page < 1 {
		page = 1
	}
	q.Set("page", strconv.Itoa(page))
	return q
}
