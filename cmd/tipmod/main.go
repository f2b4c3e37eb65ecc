package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tiptune/tipmod/automod"
	"github.com/tiptune/tipmod/automod/artistdir"
	"github.com/tiptune/tipmod/automod/logstore"
	"github.com/tiptune/tipmod/automod/rulestore"
	"github.com/tiptune/tipmod/models"
	"github.com/tiptune/tipmod/util/cliutil"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "tipmod",
		Usage:   "tip message moderation daemon",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			EnvVars: []string{"TIPMOD_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "log output format (text or json)",
			EnvVars: []string{"TIPMOD_LOG_FMT"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
		previewCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Value:   "sqlite://data/tipmod/tipmod.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
			Value:   40,
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs",
			Value:   ":3990",
			EnvVars: []string{"TIPMOD_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3991",
			EnvVars: []string{"TIPMOD_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL, for shared rule cache and verdict tallies",
			EnvVars: []string{"TIPMOD_REDIS_URL"},
		},
		&cli.DurationFlag{
			Name:    "rule-cache-ttl",
			Usage:   "how long keyword rule lists are cached",
			Value:   5 * time.Minute,
			EnvVars: []string{"TIPMOD_RULE_CACHE_TTL"},
		},
		&cli.StringFlag{
			Name:    "rules-file",
			Usage:   "JSON file of global keyword rules to seed at startup",
			EnvVars: []string{"TIPMOD_RULES_FILE"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "full URL of slack webhook",
			EnvVars: []string{"SLACK_WEBHOOK_URL"},
		},
		&cli.IntFlag{
			Name:    "event-queue-size",
			Usage:   "number of moderation events buffered for delivery before new ones are dropped",
			Value:   1000,
			EnvVars: []string{"TIPMOD_EVENT_QUEUE_SIZE"},
		},
		&cli.StringFlag{
			Name:    "auth-token",
			Usage:   "if set, API requests must carry this bearer token",
			EnvVars: []string{"TIPMOD_AUTH_TOKEN"},
		},
		&cli.BoolFlag{
			Name:    "allow-rereview",
			Usage:   "allow reviewing a moderation log again, overwriting the earlier decision",
			EnvVars: []string{"TIPMOD_ALLOW_REREVIEW"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger, err := cliutil.SetupSlog(cliutil.LogOptions{
			LogLevel:  cctx.String("log-level"),
			LogFormat: cctx.String("log-format"),
		})
		if err != nil {
			return err
		}

		shutdownOTEL, err := configOTEL(ctx, "tipmod")
		if err != nil {
			return err
		}
		defer shutdownOTEL()

		db, err := cliutil.SetupDatabase(cctx.String("database-url"), cctx.Int("max-db-connections"))
		if err != nil {
			return err
		}
		if err := models.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}

		srv, err := NewServer(
			db,
			Config{
				Logger:            logger,
				Bind:              cctx.String("bind"),
				RedisURL:          cctx.String("redis-url"),
				RuleCacheTTL:      cctx.Duration("rule-cache-ttl"),
				RulesFileJSON:     cctx.String("rules-file"),
				SlackWebhookURL:   cctx.String("slack-webhook-url"),
				EventQueueSize:    cctx.Int("event-queue-size"),
				AuthToken:         cctx.String("auth-token"),
				AllowReReview:     cctx.Bool("allow-rereview"),
				EnableHTTPMetrics: true,
			},
		)
		if err != nil {
			return err
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.RunAPI(ctx)
		})
		g.Go(func() error {
			return srv.RunMetrics(ctx, cctx.String("metrics-listen"))
		})
		g.Go(func() error {
			return srv.dispatcher.Run(ctx)
		})
		if err := g.Wait(); err != nil {
			return fmt.Errorf("failed to run moderation service: %w", err)
		}
		return nil
	},
}

var previewCmd = &cli.Command{
	Name:      "preview",
	Usage:     "evaluate a message against a rules file, without a database",
	ArgsUsage: "<message>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "rules-file",
			Usage:    "JSON file of global keyword rules",
			Required: true,
			EnvVars:  []string{"TIPMOD_RULES_FILE"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		if cctx.Args().Len() != 1 {
			return fmt.Errorf("expected a single message argument")
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

		rules := rulestore.NewMemRuleStore()
		if _, err := rulestore.LoadFromFileJSON(ctx, rules, cctx.String("rules-file"), "rules-file"); err != nil {
			return err
		}
		logs := logstore.NewMemLogStore()
		mod := automod.Moderator{
			Logger:  logger,
			Rules:   rules,
			Logs:    logs,
			Tips:    logs,
			Artists: artistdir.NewMemDirectory(),
		}

		v, err := mod.PreviewMessage(ctx, cctx.Args().First())
		if err != nil {
			return err
		}
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cctx.App.Writer, string(b))
		return nil
	},
}
