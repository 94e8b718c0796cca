package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/fleetglass/fleetglass/config"
	redisadapter "github.com/fleetglass/fleetglass/internal/adapters/redis"
	"github.com/fleetglass/fleetglass/internal/bootstrap"
	"github.com/fleetglass/fleetglass/internal/data"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const defaultMigrationTimeout = 5 * time.Minute

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmdName)
		printUsage()
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrate,
		},
		"session-show": {
			name:        "session-show",
			description: "Print the persisted session record, if any",
			run:         runSessionShow,
		},
		"session-clear": {
			name:        "session-clear",
			description: "Delete the persisted session record",
			run:         runSessionClear,
		},
		"operators": {
			name:        "operators",
			description: "List known operators, most recent sign-in first",
			run:         runOperators,
		},
	}
}

func printUsage() {
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(os.Stderr, "usage: fleetglass-admin <command> [flags]")
	fmt.Fprintln(os.Stderr)
	w := tabwriter.NewWriter(os.Stderr, 0, 4, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%s\n", name, cmds[name].description)
	}
	_ = w.Flush()
}

func runMigrate(ctx *commandContext, _ []string) error {
	runCtx, cancel := context.WithTimeout(ctx.Ctx, defaultMigrationTimeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: ctx.Config.Postgres,
		Logger:   ctx.Logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return bootstrap.RunMigrations(runCtx, db, ctx.Logger)
}

func runSessionShow(ctx *commandContext, _ []string) error {
	client, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{
		RedisConfig: ctx.Config.Redis,
		Logger:      ctx.Logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	sess, err := redisadapter.NewSessionStore(client).Load(ctx.Ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		fmt.Println("no persisted session")
		return nil
	}

	out, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runSessionClear(ctx *commandContext, _ []string) error {
	client, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{
		RedisConfig: ctx.Config.Redis,
		Logger:      ctx.Logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if err := redisadapter.NewSessionStore(client).Save(ctx.Ctx, nil); err != nil {
		return err
	}
	fmt.Println("persisted session cleared")
	return nil
}

func runOperators(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("operators", flag.ContinueOnError)
	limit := fs.Int("limit", 50, "maximum rows to print")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: ctx.Config.Postgres,
		Logger:   ctx.Logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ops, err := data.NewOperatorRepo(db).List(ctx.Ctx, *limit, 0)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USER KEY\tEMAIL\tSIGN-INS\tLAST SIGN-IN")
	for _, op := range ops {
		email := ""
		if op.Email != nil {
			email = *op.Email
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			op.UserKey, email, op.SignInCount, op.LastSignIn.Format(time.RFC3339))
	}
	return w.Flush()
}
