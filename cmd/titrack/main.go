// Command titrack is the passive loot-tracking engine's process entrypoint:
// init, serve, tail, show-runs, and show-state subcommands over the
// pipeline wired together in internal/collector, internal/store,
// internal/cloudsync, and internal/httpapi.
//
// Grounded on the teacher's main.go signal-handling and panic-recovery
// idiom (signal.Notify + deferred recover + log.Error with a stack trace),
// generalized from its single-application entrypoint to a flag.FlagSet per
// subcommand, following the teacher's own cmd/raw_to_script.go CLI style.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"titrack/internal/cloudsync"
	"titrack/internal/collector"
	"titrack/internal/config"
	"titrack/internal/httpapi"
	"titrack/internal/log"
	"titrack/internal/metrics"
	"titrack/internal/model"
	"titrack/internal/store"
	"titrack/internal/tailer"
)

var (
	version = "dev"
	commit  = "none"
)

const exitUsage = 2

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Error("titrack: panic recovered", "error", r, "stack", string(debug.Stack()))
			fmt.Fprintln(os.Stderr, "titrack crashed; see titrack_debug.log for details")
			os.Exit(1)
		}
	}()

	if err := log.SetFileOutput("titrack_debug.log"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open debug log file: %v\n", err)
	}
	defer log.Close()

	if len(os.Args) < 2 {
		usage()
		os.Exit(exitUsage)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = runInit(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "tail":
		err = runTail(os.Args[2:])
	case "show-runs":
		err = runShowRuns(os.Args[2:])
	case "show-state":
		err = runShowState(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(exitUsage)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "titrack: "+err.Error())
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `titrack `+version+" ("+commit+`)

Usage:
  titrack init [--seed <items.json>] [--portable]
  titrack serve [--port N] [--no-window] [--portable] [--overlay] [--overlay-only]
  titrack tail [--portable]
  titrack show-runs [--portable] [--limit N]
  titrack show-state [--portable]`)
}

// openConfiguredStore loads Config and opens the Store at its resolved
// DBPath, transparently migrating forward from LegacyDBPath if present.
func openConfiguredStore(cfg *config.Config) (*store.Store, error) {
	return store.Open(cfg.DBPath, cfg.LegacyDBPath())
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	seed := fs.String("seed", "", "path to a JSON file of items to pre-populate (type_id, name, icon_ref)")
	portable := fs.Bool("portable", false, "store data beside the executable instead of the per-user config directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*portable)
	if err != nil {
		return err
	}
	st, err := openConfiguredStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := loadOrCreateDeviceUUID(cfg); err != nil {
		return err
	}

	if *seed != "" {
		n, err := seedItems(st, *seed)
		if err != nil {
			return err
		}
		fmt.Printf("seeded %d items\n", n)
	}

	fmt.Println("initialized data directory:", cfg.DataDir)
	return nil
}

type seedItem struct {
	TypeId  model.TypeId `json:"type_id"`
	Name    string       `json:"name"`
	IconRef string       `json:"icon_ref"`
	TypeCN  string       `json:"type_cn"`
}

func seedItems(st *store.Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var items []seedItem
	if err := json.Unmarshal(data, &items); err != nil {
		return 0, fmt.Errorf("parsing seed file: %w", err)
	}
	for _, it := range items {
		if err := st.UpsertItem(model.Item{TypeId: it.TypeId, Name: it.Name, IconRef: it.IconRef, TypeCN: it.TypeCN}); err != nil {
			return 0, err
		}
	}
	return len(items), nil
}

// loadGearAllowlist resolves model.AllowedGearTypeCN against the items
// table's type_cn column so model.IsExcludedSlot enforces spec.md §3's
// gear-exclusion allowlist against real item metadata instead of an empty
// map. Grounded on
// original_source/src/titrack/data/inventory.py's initialize_gear_allowlist,
// called once at process startup just like its Python counterpart.
func loadGearAllowlist(st *store.Store) error {
	ids, err := st.GearAllowlistTypeIds(model.AllowedGearTypeCN)
	if err != nil {
		return err
	}
	model.SetAllowedGearTypeIds(ids)
	return nil
}

// loadOrCreateDeviceUUID reads the persisted device identifier used to
// attribute cloud submissions, generating and persisting one on first run.
func loadOrCreateDeviceUUID(cfg *config.Config) (string, error) {
	path := cfg.DeviceUUIDPath()
	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		return string(data), nil
	}
	id := uuid.New().String()
	if err := os.WriteFile(path, []byte(id), 0o644); err != nil {
		return "", err
	}
	return id, nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	port := fs.Int("port", 0, "override the HTTP boundary port")
	noWindow := fs.Bool("no-window", false, "suppress the presentation layer's window on startup")
	portable := fs.Bool("portable", false, "store data beside the executable instead of the per-user config directory")
	overlay := fs.Bool("overlay", false, "enable the always-on-top overlay presentation")
	overlayOnly := fs.Bool("overlay-only", false, "run only the overlay presentation, no main window")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*portable)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Port = *port
	}
	cfg.NoWindow = *noWindow
	cfg.Overlay = *overlay
	cfg.OverlayOnly = *overlayOnly

	st, err := openConfiguredStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := loadGearAllowlist(st); err != nil {
		return err
	}

	deviceUUID, err := loadOrCreateDeviceUUID(cfg)
	if err != nil {
		return err
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	var remote cloudsync.Remote
	if cfg.CloudEnabled() {
		remote = cloudsync.NewHTTPRemote(cfg.CloudBaseURL, cfg.CloudAnonKey)
	} else {
		remote = disabledRemote{}
	}
	worker := cloudsync.New(remote, st, st, deviceUUID)
	worker.SetEnabled(cfg.CloudEnabled())
	worker.SetMetrics(m)

	pos := lastLogPosition(st, cfg.LogPath)
	coll := collector.New(st, cfg.LogPath, pos, worker)
	coll.SetMetrics(m)
	if err := coll.ColdStart(0); err != nil {
		log.Warn("serve: cold start scan failed: " + err.Error())
	}

	iconCache, err := httpapi.NewIconCache(filepath.Join(cfg.DataDir, "icon_cache"))
	if err != nil {
		return err
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Store:     st,
		Collector: coll,
		Cloud:     worker,
		Config:    cfg,
		Metrics:   m,
		IconCache: iconCache,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go coll.Run(ctx)
	if cfg.CloudEnabled() {
		go worker.RunUplink(ctx)
		go worker.RunDownlink(ctx)
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	log.Info("serve: listening", "addr", addr)
	fmt.Printf("titrack serving on http://%s\n", addr)

	errCh := make(chan error, 1)
	go func() { errCh <- router.Run(addr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("serve: shutting down", "signal", sig.String())
		cancel()
		time.Sleep(200 * time.Millisecond)
		return nil
	}
}

// disabledRemote satisfies cloudsync.Remote when no cloud environment
// variables are configured; the Worker's enabled flag keeps it from ever
// being called, but the interface still needs a concrete value.
type disabledRemote struct{}

func (disabledRemote) SubmitPrice(ctx context.Context, deviceUUID string, typeID model.TypeId, value float64, capturedTs time.Time) error {
	return fmt.Errorf("cloud sync disabled")
}
func (disabledRemote) FetchSeasonPrices(ctx context.Context, season string, offset, limit int) ([]model.CloudPrice, error) {
	return nil, fmt.Errorf("cloud sync disabled")
}
func (disabledRemote) FetchPriceHistory(ctx context.Context, typeID model.TypeId, since time.Time, offset, limit int) ([]model.PriceHistoryRow, error) {
	return nil, fmt.Errorf("cloud sync disabled")
}

func lastLogPosition(st *store.Store, logPath string) tailer.Position {
	offset, inode, size, ok, err := st.GetLogPosition(logPath)
	if err != nil || !ok {
		return tailer.Position{}
	}
	return tailer.Position{Offset: offset, Inode: inode, Size: size}
}

func runTail(args []string) error {
	fs := flag.NewFlagSet("tail", flag.ContinueOnError)
	portable := fs.Bool("portable", false, "store data beside the executable instead of the per-user config directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*portable)
	if err != nil {
		return err
	}
	st, err := openConfiguredStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := loadGearAllowlist(st); err != nil {
		return err
	}

	worker := cloudsync.New(disabledRemote{}, st, st, "")
	worker.SetEnabled(false)

	pos := lastLogPosition(st, cfg.LogPath)
	coll := collector.New(st, cfg.LogPath, pos, worker)
	if err := coll.ColdStart(0); err != nil {
		log.Warn("tail: cold start scan failed: " + err.Error())
	}

	for _, kind := range []collector.ChangeKind{
		collector.ChangeSlotState, collector.ChangeRunOpened,
		collector.ChangeRunClosed, collector.ChangeScope, collector.ChangePriceLearned,
	} {
		coll.Bus().Subscribe(kind, func(ev collector.ChangeEvent) {
			fmt.Printf("[%s] %+v\n", ev.Kind, ev.Data)
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	fmt.Println("tailing", cfg.LogPath, "(ctrl-C to stop)")
	coll.Run(ctx)
	return nil
}

func runShowRuns(args []string) error {
	fs := flag.NewFlagSet("show-runs", flag.ContinueOnError)
	portable := fs.Bool("portable", false, "store data beside the executable instead of the per-user config directory")
	limit := fs.Int("limit", 20, "maximum number of runs to print")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*portable)
	if err != nil {
		return err
	}
	st, err := openConfiguredStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := loadGearAllowlist(st); err != nil {
		return err
	}

	coll := collector.New(st, cfg.LogPath, tailer.Position{}, nil)
	if err := coll.ColdStart(0); err != nil {
		log.Warn("show-runs: cold start scan failed: " + err.Error())
	}

	runs, err := st.ListRuns(coll.CurrentScope(), *limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	for _, r := range runs {
		end := "open"
		if r.EndTs != nil {
			end = r.EndTs.Format(time.RFC3339)
		}
		fmt.Printf("#%d %-24s %s -> %s paused=%v\n", r.Id, r.ZoneDisplayName, r.StartTs.Format(time.RFC3339), end, r.Paused)
	}
	return nil
}

func runShowState(args []string) error {
	fs := flag.NewFlagSet("show-state", flag.ContinueOnError)
	portable := fs.Bool("portable", false, "store data beside the executable instead of the per-user config directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*portable)
	if err != nil {
		return err
	}
	st, err := openConfiguredStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := loadGearAllowlist(st); err != nil {
		return err
	}

	coll := collector.New(st, cfg.LogPath, tailer.Position{}, nil)
	if err := coll.ColdStart(0); err != nil {
		log.Warn("show-state: cold start scan failed: " + err.Error())
	}

	s := coll.Status()
	scope := coll.CurrentScope()
	fmt.Printf("log path:       %s\n", s.LogPath)
	fmt.Printf("log missing:    %v\n", s.LogPathMissing)
	fmt.Printf("waiting for player: %v\n", s.WaitingForPlayer)
	fmt.Printf("scope:          player=%q season=%q name=%q\n", scope.PlayerId, scope.SeasonId, scope.Name)

	state, err := st.LoadSlotState(scope)
	if err != nil {
		return err
	}
	fmt.Printf("tracked slots:  %d\n", len(state))
	return nil
}
