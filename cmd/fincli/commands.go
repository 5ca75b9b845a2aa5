package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"fincli/internal/amqp"
	"fincli/internal/api"
	"fincli/internal/cli"
	"fincli/internal/core"
	"fincli/internal/log"
	"fincli/internal/services"
	"fincli/internal/session"
)

var stdout io.Writer = os.Stdout

func parse(name string, fs *flag.FlagSet, args []string) error {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%s: %w: %v", name, errUsage, err)
	}
	return nil
}

func newFlags(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

// password returns value, else FINCLI_PASSWORD, else one line from stdin.
func password(value string) (string, error) {
	if value != "" {
		return value, nil
	}
	if env := os.Getenv("FINCLI_PASSWORD"); env != "" {
		return env, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func singleID(name string, args []string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("%s: %w", name, errUsage)
	}
	return args[0], nil
}

func table() *tabwriter.Writer {
	return tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
}

func runLogin(ctx context.Context, app *cli.App, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "account email")
	pass := fs.String("password", "", "account password")
	if err := parse("login", fs, args); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("login: %w", errUsage)
	}
	pw, err := password(*pass)
	if err != nil {
		return err
	}
	if err := app.Auth.Login(ctx, *email, pw); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Logged in as %s\n", displayName(app.Auth.User()))
	return nil
}

func runRegister(ctx context.Context, app *cli.App, args []string) error {
	fs := newFlags("register")
	var req api.RegisterRequest
	fs.StringVar(&req.Email, "email", "", "account email")
	fs.StringVar(&req.Username, "username", "", "username")
	fs.StringVar(&req.FirstName, "first", "", "first name")
	fs.StringVar(&req.LastName, "last", "", "last name")
	fs.StringVar(&req.DefaultCurrency, "currency", "", "default currency")
	pass := fs.String("password", "", "account password")
	if err := parse("register", fs, args); err != nil {
		return err
	}
	if req.Email == "" {
		return fmt.Errorf("register: %w", errUsage)
	}
	pw, err := password(*pass)
	if err != nil {
		return err
	}
	req.Password, req.PasswordConfirm = pw, pw

	if err := app.Auth.Register(ctx, req); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Registered and logged in as %s\n", displayName(app.Auth.User()))
	return nil
}

func runLogout(ctx context.Context, app *cli.App, _ []string) error {
	app.Auth.Logout(ctx)
	app.Auth.Wait()
	fmt.Fprintln(stdout, "Logged out")
	return nil
}

func runWhoami(ctx context.Context, app *cli.App, _ []string) error {
	if err := app.Auth.LoadProfile(ctx); err != nil {
		return err
	}
	u := app.Auth.User()
	if u == nil {
		return errors.New("not logged in")
	}
	w := table()
	fmt.Fprintf(w, "Name\t%s\n", displayName(u))
	fmt.Fprintf(w, "Email\t%s\n", u.Email)
	fmt.Fprintf(w, "Username\t%s\n", u.Username)
	fmt.Fprintf(w, "Currency\t%s\n", u.DefaultCurrency)
	return w.Flush()
}

func runStatus(_ context.Context, app *cli.App, _ []string) error {
	creds := app.Session.Credentials()
	w := table()
	fmt.Fprintf(w, "Backend\t%s\n", app.Gateway.BaseURL())
	fmt.Fprintf(w, "Credential store\t%s\n", app.Config.CredentialBackend)
	if creds.Empty() {
		fmt.Fprintf(w, "Session\tlogged out\n")
		return w.Flush()
	}
	fmt.Fprintf(w, "Session\tactive\n")
	if exp, ok := session.AccessExpiry(creds.Access); ok {
		state := "valid"
		if time.Now().After(exp) {
			state = "expired, refreshed on next call"
		}
		fmt.Fprintf(w, "Access expires\t%s (%s)\n", exp.Local().Format(time.RFC1123), state)
	}
	return w.Flush()
}

func runProfile(ctx context.Context, app *cli.App, args []string) error {
	fs := newFlags("profile")
	var upd api.ProfileUpdate
	fs.StringVar(&upd.FirstName, "first", "", "first name")
	fs.StringVar(&upd.LastName, "last", "", "last name")
	fs.StringVar(&upd.Phone, "phone", "", "phone")
	fs.StringVar(&upd.DefaultCurrency, "currency", "", "default currency")
	fs.StringVar(&upd.Theme, "theme", "", "theme")
	if err := parse("profile", fs, args); err != nil {
		return err
	}
	if err := app.Auth.UpdateProfile(ctx, upd); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Profile updated")
	return nil
}

func runPasswd(ctx context.Context, app *cli.App, args []string) error {
	fs := newFlags("passwd")
	var req api.ChangePasswordRequest
	fs.StringVar(&req.OldPassword, "old", "", "current password")
	fs.StringVar(&req.NewPassword, "new", "", "new password")
	if err := parse("passwd", fs, args); err != nil {
		return err
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return fmt.Errorf("passwd: %w", errUsage)
	}
	req.NewPasswordConfirm = req.NewPassword
	if err := app.Auth.ChangePassword(ctx, req); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Password changed")
	return nil
}

func runAccounts(ctx context.Context, app *cli.App, args []string) error {
	fs := newFlags("accounts")
	inactive := fs.Bool("inactive", false, "include inactive accounts")
	if err := parse("accounts", fs, args); err != nil {
		return err
	}
	accounts, err := app.API.Accounts.List(ctx, *inactive)
	if err != nil {
		return err
	}
	w := table()
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tBALANCE")
	for _, a := range accounts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s %s\n", a.ID, a.Name, a.Type, a.CurrentBalance, a.Currency)
	}
	return w.Flush()
}

func runAccountAdd(ctx context.Context, app *cli.App, args []string) error {
	fs := newFlags("account-add")
	var in core.AccountInput
	fs.StringVar(&in.Name, "name", "", "account name")
	kind := fs.String("type", string(core.AccountChecking), "account type")
	fs.StringVar(&in.Currency, "currency", "", "currency")
	balance := fs.String("balance", "0", "initial balance")
	if err := parse("account-add", fs, args); err != nil {
		return err
	}
	in.Type = core.AccountType(strings.ToUpper(*kind))
	amount, err := core.ParseAmount(*balance)
	if err != nil {
		return err
	}
	in.InitialBalance = amount

	acc, err := app.API.Accounts.Create(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Created account %s (%s)\n", acc.Name, acc.ID)
	return nil
}

func runAccountDelete(ctx context.Context, app *cli.App, args []string) error {
	id, err := singleID("account-rm", args)
	if err != nil {
		return err
	}
	if err := app.API.Accounts.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Account deactivated")
	return nil
}

func runAccountRestore(ctx context.Context, app *cli.App, args []string) error {
	id, err := singleID("account-back", args)
	if err != nil {
		return err
	}
	if err := app.API.Accounts.Restore(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Account restored")
	return nil
}

func runCategories(ctx context.Context, app *cli.App, _ []string) error {
	categories, err := app.API.Categories.List(ctx)
	if err != nil {
		return err
	}
	w := table()
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tTRANSACTIONS")
	for _, c := range categories {
		fmt.Fprintf(w, "%s\t%s %s\t%s\t%d\n", c.ID, c.Icon, c.Name, c.Type, c.TransactionsCount)
	}
	return w.Flush()
}

func runCategoryAdd(ctx context.Context, app *cli.App, args []string) error {
	fs := newFlags("category-add")
	var in core.CategoryInput
	fs.StringVar(&in.Name, "name", "", "category name")
	kind := fs.String("type", string(core.TypeExpense), "INCOME or EXPENSE")
	fs.StringVar(&in.Icon, "icon", "", "icon")
	fs.StringVar(&in.Color, "color", "", "color")
	if err := parse("category-add", fs, args); err != nil {
		return err
	}
	in.Type = core.TransactionType(strings.ToUpper(*kind))

	c, err := app.API.Categories.Create(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Created category %s (%s)\n", c.Name, c.ID)
	return nil
}

func runCategoryDelete(ctx context.Context, app *cli.App, args []string) error {
	id, err := singleID("category-rm", args)
	if err != nil {
		return err
	}
	if err := app.API.Categories.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Category deleted")
	return nil
}

func runTransactions(ctx context.Context, app *cli.App, args []string) error {
	fs := newFlags("transactions")
	var f core.TransactionFilter
	fs.StringVar(&f.Search, "search", "", "text search")
	kind := fs.String("type", "", "INCOME or EXPENSE")
	fs.StringVar(&f.Account, "account", "", "account id")
	fs.StringVar(&f.Category, "category", "", "category id")
	fs.StringVar(&f.StartDate, "from", "", "start date (YYYY-MM-DD)")
	fs.StringVar(&f.EndDate, "to", "", "end date (YYYY-MM-DD)")
	fs.StringVar(&f.Ordering, "order", "-date", "ordering")
	page := fs.Int("page", 1, "page number")
	if err := parse("transactions", fs, args); err != nil {
		return err
	}
	f.Type = core.TransactionType(strings.ToUpper(*kind))

	res, err := app.API.Transactions.List(ctx, f, *page)
	if err != nil {
		return err
	}
	w := table()
	fmt.Fprintln(w, "DATE\tDESCRIPTION\tAMOUNT\tTYPE\tCATEGORY\tACCOUNT\tID")
	for _, tx := range res.Results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.Date, tx.Description, tx.Amount, tx.Type, tx.CategoryName, tx.AccountName, tx.ID)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "page %d, %d transactions\n", *page, res.Count)
	return nil
}

func runAdd(ctx context.Context, app *cli.App, args []string) error {
	fs := newFlags("add")
	var in core.TransactionInput
	fs.StringVar(&in.Description, "desc", "", "description")
	amount := fs.String("amount", "", "amount, dot or comma decimals")
	kind := fs.String("type", string(core.TypeExpense), "INCOME or EXPENSE")
	fs.StringVar(&in.Date, "date", time.Now().Format(core.DateLayout), "date (YYYY-MM-DD)")
	fs.StringVar(&in.Account, "account", "", "account id")
	fs.StringVar(&in.Category, "category", "", "category id")
	fs.StringVar(&in.Notes, "notes", "", "notes")
	tags := fs.String("tags", "", "comma separated tags")
	if err := parse("add", fs, args); err != nil {
		return err
	}
	cents, err := core.ParseDecimalToCents(*amount)
	if err != nil {
		return err
	}
	in.Amount = core.Money{Cents: cents}
	in.Type = core.TransactionType(strings.ToUpper(*kind))
	in.Status = core.StatusConfirmed
	in.Tags = core.ParseTags(*tags)
	if err := in.Validate(); err != nil {
		return err
	}

	tx, err := app.API.Transactions.Create(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Created transaction %s\n", tx.ID)
	return nil
}

func runTransactionDelete(ctx context.Context, app *cli.App, args []string) error {
	id, err := singleID("rm", args)
	if err != nil {
		return err
	}
	if err := app.API.Transactions.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Transaction deleted")
	return nil
}

func runDashboard(ctx context.Context, app *cli.App, _ []string) error {
	d, err := app.API.Transactions.Dashboard(ctx)
	if err != nil {
		return err
	}
	monthly, err := app.API.Transactions.MonthlyEvolution(ctx)
	if err != nil {
		return err
	}

	w := table()
	fmt.Fprintf(w, "Total balance\t%s\n", d.TotalBalance)
	fmt.Fprintf(w, "Month income\t%s\n", d.MonthIncome)
	fmt.Fprintf(w, "Month expense\t%s\n", d.MonthExpense)
	fmt.Fprintf(w, "Month balance\t%s\n", d.MonthBalance)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "TOP EXPENSES\tTOTAL\tCOUNT")
	for _, c := range d.TopExpenses {
		fmt.Fprintf(w, "%s %s\t%s\t%d\n", c.Icon, c.Name, c.Total, c.Count)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "MONTH\tINCOME\tEXPENSE\tBALANCE")
	for _, m := range monthly {
		fmt.Fprintf(w, "%s %d\t%s\t%s\t%s\n", m.Month, m.Year, m.Income, m.Expense, m.Balance)
	}
	return w.Flush()
}

func runReport(ctx context.Context, app *cli.App, args []string) error {
	fs := newFlags("report")
	var req core.ReportRequest
	period := fs.String("period", string(core.PeriodMonth), "month, quarter, year or custom")
	fs.StringVar(&req.StartDate, "from", "", "start date for custom periods")
	fs.StringVar(&req.EndDate, "to", "", "end date for custom periods")
	if err := parse("report", fs, args); err != nil {
		return err
	}
	req.Period = core.ReportPeriod(strings.ToLower(*period))

	r, err := app.API.Reports.Generate(ctx, req)
	if err != nil {
		return err
	}
	s := r.Data.Summary
	w := table()
	fmt.Fprintf(w, "Report\t%s\n", r.ID)
	fmt.Fprintf(w, "Period\t%s to %s\n", r.PeriodStart, r.PeriodEnd)
	fmt.Fprintf(w, "Income\t%s\n", s.TotalIncome)
	fmt.Fprintf(w, "Expense\t%s\n", s.TotalExpense)
	fmt.Fprintf(w, "Balance\t%s\n", s.Balance)
	fmt.Fprintf(w, "Transactions\t%d\n", s.TransactionsCount)
	if c := r.Data.Comparison; c != nil {
		fmt.Fprintf(w, "vs %s to %s\tincome %s, expense %s, balance %s\n",
			c.PreviousPeriod.StartDate, c.PreviousPeriod.EndDate,
			core.FormatChange(c.Changes.IncomePct),
			core.FormatChange(c.Changes.ExpensePct),
			core.FormatChange(c.Changes.BalancePct))
	}
	if len(r.Data.ByCategory) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "CATEGORY\tTOTAL\tCOUNT")
		for _, c := range r.Data.ByCategory {
			fmt.Fprintf(w, "%s\t%s\t%d\n", c.Name, c.Total, c.Count)
		}
	}
	return w.Flush()
}

func runExport(ctx context.Context, app *cli.App, args []string) error {
	fs := newFlags("export")
	id := fs.String("id", "", "report id")
	format := fs.String("format", api.FormatPDF, "csv or pdf")
	out := fs.String("o", "", "output file (default report-ID.FORMAT)")
	if err := parse("export", fs, args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("export: %w", errUsage)
	}

	data, _, err := app.API.Reports.Export(ctx, *id, *format)
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = fmt.Sprintf("report-%s.%s", *id, *format)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(stdout, "Saved %s (%d bytes)\n", path, len(data))
	return nil
}

func runImport(ctx context.Context, app *cli.App, args []string) error {
	fs := newFlags("import")
	file := fs.String("file", "", "CSV file to import")
	var defaults services.ImportDefaults
	fs.StringVar(&defaults.Account, "account", "", "account for rows without one")
	kind := fs.String("type", "", "type for rows without one")
	if err := parse("import", fs, args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("import: %w", errUsage)
	}
	defaults.Type = core.TransactionType(strings.ToUpper(*kind))

	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()
	rows, err := services.ReadImportCSV(f, defaults)
	if err != nil {
		return err
	}

	var publisher services.Publisher
	if app.Config.AMQPEnabled() {
		client, err := amqp.NewClient(app.Config.AMQPURL, app.Config.AMQPExchange, app.Config.AMQPQueue, app.Logger)
		if err != nil {
			app.Logger.Warn("Import queue unavailable, importing directly", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
		}
	}

	svc := services.NewImportService(publisher, app.API.Transactions, app.Logger)
	results, err := svc.EnqueueAll(ctx, rows)
	queued := 0
	for _, r := range results {
		if r.Queued {
			queued++
		}
	}
	fmt.Fprintf(stdout, "Imported %d of %d rows (%d queued, %d created)\n",
		len(results), len(rows), queued, len(results)-queued)
	return err
}

func displayName(u *core.User) string {
	if u == nil {
		return "unknown user"
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}
