package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"github.com/go-pkgz/syncs"
	"github.com/umputun/go-flags"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/leynos/hoover/app/archive"
	"github.com/leynos/hoover/app/exporter"
	"github.com/leynos/hoover/app/logcache"
	"github.com/leynos/hoover/app/server"
	"github.com/leynos/hoover/app/viewer"
	"github.com/leynos/hoover/app/watch"
)

var opts struct {
	Dbg bool `long:"dbg" env:"HOOVER_DEBUG" description:"debug mode"`

	Log struct {
		Enabled         bool   `long:"enabled" env:"ENABLED" description:"enable logging to file"`
		Filename        string `long:"file" env:"FILE" default:"hoover.log" description:"log file name"`
		MaxSize         int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"max log file size in megabytes"`
		MaxAge          int    `long:"max-age" env:"MAX_AGE" default:"0" description:"max days to keep old log files"`
		MaxBackups      int    `long:"max-backups" env:"MAX_BACKUPS" default:"7" description:"max number of old log files"`
		EnabledCompress bool   `long:"compress" env:"COMPRESS" description:"compress rotated log files"`
	} `group:"log" namespace:"log" env-namespace:"HOOVER_LOG"`

	Web struct {
		Address      string  `long:"address" env:"ADDRESS" default:"127.0.0.1:8080" description:"http api listen address"`
		PasswordHash string  `long:"password-hash" env:"PASSWORD_HASH" description:"bcrypt hash for basic auth, user hoover"`
		Rate         float64 `long:"rate" env:"RATE" default:"20" description:"ingest requests per second per client, 0 to disable"`
	} `group:"web" namespace:"web" env-namespace:"HOOVER_WEB"`

	Archive struct {
		DB       string `long:"db" env:"DB" description:"snapshot archive sqlite file, archive disabled if empty"`
		Schedule string `long:"schedule" env:"SCHEDULE" description:"export schedule, e.g. @every 5m, no scheduled export if empty"`
		Keep     int    `long:"keep" env:"KEEP" default:"20" description:"snapshots kept per stream, 0 keeps all"`
		Index    bool   `long:"index" env:"INDEX" description:"scheduled snapshots with line numbers"`
		Stamps   bool   `long:"timestamps" env:"TIMESTAMPS" description:"scheduled snapshots with timestamps"`
	} `group:"archive" namespace:"archive" env-namespace:"HOOVER_ARCHIVE"`

	Files struct {
		Dir      string        `long:"dir" env:"DIR" description:"directory of window dumps to watch"`
		Debounce time.Duration `long:"debounce" env:"DEBOUNCE" default:"100ms" description:"wait for a dump to settle"`
	} `group:"files" namespace:"files" env-namespace:"HOOVER_FILES"`

	Browser struct {
		URL          string        `long:"url" env:"URL" description:"actions run page to hoover"`
		Poll         time.Duration `long:"poll" env:"POLL" default:"500ms" description:"page polling interval"`
		AllSteps     bool          `long:"all-steps" env:"ALL_STEPS" description:"hoover all steps, not only failed ones"`
		Headless     bool          `long:"headless" env:"HEADLESS" description:"run browser without a window"`
		Install      bool          `long:"install" env:"INSTALL" description:"install browser before start"`
		StorageState string        `long:"storage-state" env:"STORAGE_STATE" description:"playwright storage state for signed in sessions"`
		Attempts     int           `long:"attempts" env:"ATTEMPTS" default:"5" description:"navigation attempts"`
		Duration     time.Duration `long:"duration" env:"DURATION" default:"1s" description:"initial retry delay"`
		Factor       float64       `long:"factor" env:"FACTOR" default:"2" description:"retry backoff factor"`
	} `group:"browser" namespace:"browser" env-namespace:"HOOVER_BROWSER"`

	View struct {
		URL        string        `long:"url" env:"URL" default:"http://127.0.0.1:8080" description:"hoover server url"`
		Stream     string        `long:"stream" env:"STREAM" description:"stream to view, first captured one if empty"`
		Refresh    time.Duration `long:"refresh" env:"REFRESH" default:"500ms" description:"refresh interval"`
		Index      bool          `long:"index" env:"INDEX" description:"show line numbers"`
		Timestamps bool          `long:"timestamps" env:"TIMESTAMPS" description:"show timestamps"`
		User       string        `long:"user" env:"USER" default:"hoover" description:"basic auth user"`
		Password   string        `long:"password" env:"PASSWORD" description:"basic auth password"`
	} `group:"view" namespace:"view" env-namespace:"HOOVER_VIEW"`

	ServeCmd struct{} `command:"serve" description:"capture streams and serve them over http"`
	ViewCmd  struct{} `command:"view" description:"show a captured stream, live in a terminal or as a plain dump"`

	SchemaCmd struct {
		Output string `short:"o" long:"output" description:"output file, stdout if empty"`
	} `command:"schema" description:"write json schema of the ingest payload"`
}

var revision = "unknown"

func main() {
	fmt.Fprintf(os.Stderr, "hoover %s\n", revision)

	p := flags.NewParser(&opts, flags.Default)
	if _, err := p.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}
	logOut := setupLogs()
	if logOut == os.Stdout && p.Active.Name != "serve" {
		logOut = os.Stderr // stdout carries view dumps and the schema
	}
	setupLog(opts.Dbg, logOut)

	defer func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signals(cancel) // handle SIGQUIT and SIGTERM

	if err := run(ctx, p.Active.Name); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string) error {
	switch command {
	case "serve":
		return runServe(ctx)
	case "view":
		return runView(ctx, os.Stdout)
	case "schema":
		return runSchema(opts.SchemaCmd.Output, os.Stdout)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// runServe runs watch sources, the http api and the scheduled exporter until ctx is done
func runServe(ctx context.Context) error {
	reg := logcache.NewRegistry()

	var store *archive.SQLiteStore
	if opts.Archive.DB != "" {
		var err error
		if store, err = archive.NewSQLiteStore(opts.Archive.DB); err != nil {
			return fmt.Errorf("can't open archive: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Printf("[WARN] failed to close archive: %v", err)
			}
		}()
		log.Printf("[INFO] archive enabled, %s", opts.Archive.DB)
	}

	srvCfg := server.Config{Registry: reg, PasswordHash: opts.Web.PasswordHash,
		IngestRate: opts.Web.Rate, Version: revision}
	if store != nil {
		srvCfg.Archive = store
		srvCfg.ArchivePath = filepath.Dir(opts.Archive.DB)
	}
	srv, err := server.New(srvCfg)
	if err != nil {
		return err
	}

	runners := []func(context.Context) error{
		func(ctx context.Context) error { return srv.Run(ctx, opts.Web.Address) },
	}
	for _, src := range makeSources() {
		runners = append(runners, func(ctx context.Context) error { return src.Run(ctx, reg) })
	}
	if exp := makeExporter(reg, store); exp != nil {
		runners = append(runners, exp.Run)
	}
	return runAll(ctx, runners...)
}

// runAll runs all functions in parallel, the first failure stops the rest
func runAll(ctx context.Context, runners ...func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// no syncs.Context here, a Go call seeing the canceled ctx would record it ahead of the real error
	gr := syncs.NewErrSizedGroup(len(runners), syncs.TermOnErr)
	for _, r := range runners {
		gr.Go(func() error {
			err := r(ctx)
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			cancel()
			return err
		})
	}

	err := gr.Wait()
	var merr *syncs.MultiError
	if errors.As(err, &merr) && len(merr.Errors()) > 0 {
		return merr.Errors()[0]
	}
	return err
}

func makeSources() []watch.Source {
	var res []watch.Source
	if opts.Files.Dir != "" {
		res = append(res, &watch.FileSource{Dir: opts.Files.Dir, Debounce: opts.Files.Debounce})
	}
	if opts.Browser.URL != "" {
		res = append(res, &watch.BrowserSource{
			URL:          opts.Browser.URL,
			Poll:         opts.Browser.Poll,
			AllSteps:     opts.Browser.AllSteps,
			Headless:     opts.Browser.Headless,
			Install:      opts.Browser.Install,
			StorageState: opts.Browser.StorageState,
			Repeater: repeater.New(&strategy.Backoff{Repeats: opts.Browser.Attempts,
				Duration: opts.Browser.Duration, Factor: opts.Browser.Factor, Jitter: true}),
		})
	}
	if len(res) == 0 {
		log.Printf("[INFO] no watch sources configured, streams come from the ingest api only")
	}
	return res
}

func makeExporter(reg *logcache.Registry, store *archive.SQLiteStore) *exporter.Exporter {
	if opts.Archive.Schedule == "" {
		return nil
	}
	if store == nil {
		log.Printf("[WARN] export schedule ignored, archive db is not set")
		return nil
	}
	return &exporter.Exporter{
		Registry: reg,
		Store:    store,
		Schedule: opts.Archive.Schedule,
		Keep:     opts.Archive.Keep,
		Options:  logcache.Options{Index: opts.Archive.Index, Timestamp: opts.Archive.Stamps},
	}
}

// runView starts the terminal viewer, or dumps the stream once if out is not a terminal
func runView(ctx context.Context, out *os.File) error {
	cfg := viewer.Config{
		Client: &viewer.Client{
			URL:      opts.View.URL,
			User:     opts.View.User,
			Password: opts.View.Password,
			Repeater: repeater.New(&strategy.Backoff{Repeats: 3, Duration: 100 * time.Millisecond, Factor: 2}),
		},
		Stream:  opts.View.Stream,
		Options: logcache.Options{Index: opts.View.Index, Timestamp: opts.View.Timestamps},
		Refresh: opts.View.Refresh,
	}
	if opts.View.Password == "" {
		cfg.Client.User = ""
	}
	if !term.IsTerminal(int(out.Fd())) { //nolint:gosec // fd fits int
		return viewer.Dump(ctx, out, cfg)
	}
	return viewer.Run(ctx, cfg)
}

// runSchema writes the ingest payload schema to the file, or to stdout if output is empty
func runSchema(output string, stdout io.Writer) error {
	data, err := watch.SchemaJSON()
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if output == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0o600); err != nil {
		return fmt.Errorf("can't write schema to %s: %w", output, err)
	}
	log.Printf("[INFO] schema written to %s", output)
	return nil
}

// setupLogs returns the log destination, a rotated file when logging to file is enabled
func setupLogs() io.Writer {
	if !opts.Log.Enabled {
		return os.Stdout
	}
	return &lumberjack.Logger{
		Filename:   opts.Log.Filename,
		MaxSize:    opts.Log.MaxSize,
		MaxAge:     opts.Log.MaxAge,
		MaxBackups: opts.Log.MaxBackups,
		Compress:   opts.Log.EnabledCompress,
	}
}

func setupLog(dbg bool, out io.Writer) {
	if dbg {
		log.Setup(log.Out(out), log.Err(out), log.Debug, log.Msec, log.CallerFunc, log.CallerPkg)
		return
	}
	log.Setup(log.Out(out), log.Err(out), log.Msec)
}

func signals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 8192)
		for sig := range sigChan {
			if sig == syscall.SIGQUIT { // catch SIGQUIT and print stack traces
				length := runtime.Stack(stacktrace, true)
				fmt.Println(string(stacktrace[:length]))
				continue
			}
			log.Printf("[INFO] got %s, shutting down", sig)
			cancel() // terminate on SIGTERM and SIGINT
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGTERM, os.Interrupt)
}
