package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/abex/clubes-abex/pkg/config"
	"github.com/abex/clubes-abex/pkg/db"
	"github.com/abex/clubes-abex/pkg/logger"
	"github.com/abex/clubes-abex/pkg/migrate"
)

const usage = `usage: migrate [flags] <up|down|status|to VERSION|create NAME|validate>

Without -dir the migrations compiled into the binary are used.
`

func main() {
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	command, args := flag.Arg(0), flag.Args()[1:]

	// Offline commands never touch config or the database.
	switch command {
	case "create":
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		if len(args) != 1 {
			fail("create needs a migration name")
		}
		path, err := migrate.Create(target, args[0], time.Now())
		if err != nil {
			fail(err.Error())
		}
		fmt.Println("created", path)
		return
	case "validate":
		if err := migrate.Validate(migrate.Source(*dir)); err != nil {
			fail(err.Error())
		}
		fmt.Println("migrations valid")
		return
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fail("load config: " + err.Error())
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.ConsoleLogs(),
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "command": command})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "connect database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "extract sql.DB", err)
		os.Exit(1)
	}
	runner, err := migrate.NewRunner(sqlDB, migrate.Source(*dir))
	if err != nil {
		logg.Error(ctx, "build migration runner", err)
		os.Exit(1)
	}

	if err := run(ctx, logg, runner, command, args); err != nil {
		logg.Error(ctx, "migration command failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logg *logger.Logger, runner *migrate.Runner, command string, args []string) error {
	switch command {
	case "up":
		applied, err := runner.Up(ctx)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "applied", applied), "migrations applied")
	case "down":
		if err := runner.Down(ctx); err != nil {
			return err
		}
		logg.Info(ctx, "rolled back one migration")
	case "to":
		if len(args) != 1 {
			return fmt.Errorf("to needs a target version")
		}
		if err := runner.To(ctx, args[0]); err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "version", args[0]), "schema moved to version")
	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		for _, st := range statuses {
			state := "pending"
			if st.Applied {
				state = "applied"
			}
			fmt.Printf("%-8s %d %s\n", state, st.Version, st.Path)
		}
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, "migrate:", msg)
	os.Exit(1)
}
