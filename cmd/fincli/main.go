// Command fincli is a terminal client for the personal finance backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"fincli/internal/api"
	"fincli/internal/auth"
	"fincli/internal/cli"
	"fincli/internal/gateway"
	"fincli/internal/log"
)

type command struct {
	usage string
	run   func(ctx context.Context, app *cli.App, args []string) error
}

var commands = map[string]command{
	"login":        {"login -email EMAIL [-password PASSWORD]", runLogin},
	"register":     {"register -email EMAIL -first NAME -last NAME [-password PASSWORD]", runRegister},
	"logout":       {"logout", runLogout},
	"whoami":       {"whoami", runWhoami},
	"status":       {"status", runStatus},
	"profile":      {"profile [-first NAME] [-last NAME] [-currency CODE] [-theme THEME]", runProfile},
	"passwd":       {"passwd -old PASSWORD -new PASSWORD", runPasswd},
	"accounts":     {"accounts [-inactive]", runAccounts},
	"account-add":  {"account-add -name NAME -type TYPE [-balance AMOUNT] [-currency CODE]", runAccountAdd},
	"account-rm":   {"account-rm ID", runAccountDelete},
	"account-back": {"account-back ID", runAccountRestore},
	"categories":   {"categories", runCategories},
	"category-add": {"category-add -name NAME -type TYPE [-icon ICON]", runCategoryAdd},
	"category-rm":  {"category-rm ID", runCategoryDelete},
	"transactions": {"transactions [-search TEXT] [-type TYPE] [-account ID] [-from DATE] [-to DATE] [-page N]", runTransactions},
	"add":          {"add -desc TEXT -amount AMOUNT -account ID [-type TYPE] [-date DATE] [-category ID] [-tags a,b]", runAdd},
	"rm":           {"rm ID", runTransactionDelete},
	"dashboard":    {"dashboard", runDashboard},
	"report":       {"report [-period month|quarter|year|custom] [-from DATE] [-to DATE]", runReport},
	"export":       {"export -id ID [-format csv|pdf] [-o FILE]", runExport},
	"import":       {"import -file FILE [-account ID] [-type TYPE]", runImport},
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" {
		usage()
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage()
		return 2
	}

	cli.LoadEnvFile()
	bootLogger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to start", log.FieldError, err)
		return 1
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("Shutdown incomplete", log.FieldError, err)
		}
	}()

	if err := cmd.run(ctx, app, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "usage: fincli "+cmd.usage)
			return 2
		}
		fmt.Fprintln(os.Stderr, "error:", errorMessage(err))
		if app.SessionExpired() || errors.Is(err, gateway.ErrSessionExpired) {
			fmt.Fprintln(os.Stderr, "run `fincli login` to start a new session")
		}
		return 1
	}
	return 0
}

var errUsage = errors.New("invalid arguments")

func errorMessage(err error) string {
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	return api.Message(err, err.Error())
}

func usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(os.Stderr, "usage: fincli COMMAND [flags]")
	fmt.Fprintln(os.Stderr)
	for _, name := range names {
		fmt.Fprintln(os.Stderr, "  "+commands[name].usage)
	}
}
