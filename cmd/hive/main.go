package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"

	"hive/internal/auth"
	"hive/internal/config"
	"hive/internal/feed"
	"hive/internal/hive"
	"hive/internal/ics"
	appLog "hive/internal/log"
	"hive/internal/model"
	"hive/internal/seed"
	"hive/internal/store"
	"hive/internal/web"
)

const version = "0.1.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	envFile    string
	listen     string
	once       bool
	debug      bool
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		if err := runHashPassword(); err != nil {
			fmt.Fprintln(os.Stderr, "hash-password:", err)
			os.Exit(1)
		}
		return
	}

	flags := parseFlags()
	if err := run(flags); err != nil {
		appLog.Error("hive exiting with error", err)
		os.Exit(1)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/hive/config.yaml", "Path to config file")
	flag.StringVar(&cfg.envFile, "env", ".env", "Optional .env file with HIVE_STORE_KEY / HIVE_AI_KEY")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Import feeds once, print the grouped feed as JSON and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}

func run(flags flagConfig) error {
	appLog.Info("hive starting", "version", version)

	if err := config.LoadEnv(flags.envFile); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	conf, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", flags.configPath, err)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if err := conf.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level, ok := appLog.ParseLevel(conf.LogLevel)
	if !ok {
		appLog.Warn("unknown log level; using info", "log_level", conf.LogLevel)
	}
	if flags.debug {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"store", conf.Store.URL != "",
		"ai", conf.AI.APIKey != "",
		"refresh", conf.RefreshCron,
		"ics_count", len(conf.ICS),
		"admins", len(conf.Admins),
		"demo_fallback", conf.DemoFallback,
		"once", flags.once,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc := conf.Location()
	clock := feed.SystemClock{Location: loc}

	demo, err := seed.New(conf.SeedFile, clock.Now)
	if err != nil {
		return err
	}
	importer := ics.NewImporter(ics.ImporterConfig{
		Feeds:        feedsFromConfig(conf.ICS),
		CacheDir:     conf.CacheDir,
		Timeout:      conf.Store.Timeout,
		Location:     loc,
		BackfillDays: conf.BackfillDays,
		HorizonDays:  conf.HorizonDays,
		Now:          clock.Now,
	})

	var (
		primary store.Source = demo
		backend web.Store
	)
	if conf.Store.URL != "" {
		client, err := store.NewClient(conf.Store.URL, conf.Store.APIKey, conf.Store.Timeout)
		if err != nil {
			return err
		}
		backend = client
		primary = client
		if conf.DemoFallback {
			primary = store.WithFallback(client, demo)
		}
	} else {
		appLog.Warn("no store configured; serving demo events only")
	}
	events := store.Merge(primary, importer)

	if len(conf.ICS) > 0 {
		if err := importer.Refresh(ctx); err != nil {
			appLog.Error("initial ics import had failures", err)
		}
	}

	if flags.once {
		return dumpFeed(ctx, events, clock.Now())
	}

	accounts := make([]auth.Account, 0, len(conf.Admins))
	for _, a := range conf.Admins {
		accounts = append(accounts, auth.Account{Username: a.Username, PasswordHash: a.PasswordHash, SocietyID: a.SocietyID})
	}
	authn, err := auth.NewAuthenticator("Hive", accounts)
	if err != nil {
		return err
	}
	if !authn.Enabled() {
		appLog.Warn("no admin accounts configured; write API is closed")
	}

	if len(conf.ICS) > 0 {
		c := cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		)
		if _, err := c.AddFunc(conf.RefreshCron, func() {
			if err := importer.Refresh(ctx); err != nil {
				appLog.Error("scheduled ics import had failures", err)
			}
		}); err != nil {
			return fmt.Errorf("refresh schedule %q: %w", conf.RefreshCron, err)
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
	}

	if conf.SeedFile != "" {
		go func() {
			if err := demo.Watch(ctx, nil); err != nil {
				appLog.Error("demo seed watcher stopped", err, "path", conf.SeedFile)
			}
		}()
	}

	srv := web.NewServer(conf, web.Deps{
		Events: events,
		Store:  backend,
		AI: hive.NewClient(hive.Config{
			URL:     conf.AI.URL,
			Model:   conf.AI.Model,
			APIKey:  conf.AI.APIKey,
			Timeout: conf.AI.Timeout,
		}),
		Auth:  authn,
		Clock: clock,
	})
	httpServer := &http.Server{
		Addr:              conf.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	appLog.Info("hive exiting")
	return nil
}

func feedsFromConfig(in []config.ICSConfig) []ics.Feed {
	out := make([]ics.Feed, 0, len(in))
	for _, c := range in {
		out = append(out, ics.Feed{
			ID:          c.ID,
			URL:         c.URL,
			SocietyID:   c.SocietyID,
			SocietyName: c.SocietyName,
			Category:    c.Category,
		})
	}
	return out
}

// dumpFeed prints the unfiltered grouped feed to stdout.
func dumpFeed(ctx context.Context, src store.Source, now time.Time) error {
	events, err := src.Events(ctx)
	if err != nil {
		return err
	}
	groups := feed.Group(events, now)

	type section struct {
		Bucket feed.Bucket   `json:"bucket"`
		Label  string        `json:"label"`
		Events []model.Event `json:"events"`
	}
	out := struct {
		Now      time.Time `json:"now"`
		Sections []section `json:"sections"`
	}{Now: now}
	for _, b := range feed.DisplayOrder {
		out.Sections = append(out.Sections, section{Bucket: b, Label: b.Label(), Events: groups[b]})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// runHashPassword prints an argon2id hash for the admins[].password_hash
// config field.
func runHashPassword() error {
	pw, err := auth.PromptPassword(os.Stdin, os.Stderr)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(pw)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
