// Command combatsync runs a headless match: an authority and a set of
// scripted clients exchanging frames over simulated links, with telemetry
// recorded through the configured storage backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/blasternet/combatsync/internal/api"
	"github.com/blasternet/combatsync/internal/clock"
	"github.com/blasternet/combatsync/internal/config"
	"github.com/blasternet/combatsync/internal/dispatcher"
	"github.com/blasternet/combatsync/internal/influx"
	"github.com/blasternet/combatsync/internal/intake"
	"github.com/blasternet/combatsync/internal/logging"
	"github.com/blasternet/combatsync/internal/match"
	"github.com/blasternet/combatsync/internal/monitor"
	"github.com/blasternet/combatsync/internal/netsync"
	intOtel "github.com/blasternet/combatsync/internal/otel"
	"github.com/blasternet/combatsync/internal/storage"
	"github.com/blasternet/combatsync/internal/worker"
	"github.com/blasternet/combatsync/pkg/core"
	"github.com/blasternet/combatsync/pkg/streaming"
)

// BuildDate can be set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"

	ServiceName string = "combatsync"
)

var commands = map[string]bool{"run": true, "healthcheck": true, "version": true}

// loadout is handed out round robin, one primary per bot plus a pistol.
var loadout = []string{"assault_rifle", "smg", "shotgun", "sniper_rifle", "grenade_launcher", "rocket_launcher"}

func main() {
	args := os.Args[1:]
	command := "run"
	if len(args) > 0 && commands[strings.ToLower(args[0])] {
		command, args = strings.ToLower(args[0]), args[1:]
	}
	configDir := "."
	if len(args) > 0 {
		configDir = args[0]
	}

	var err error
	switch command {
	case "run":
		err = run(configDir)
	case "healthcheck":
		err = healthcheck(configDir)
	case "version":
		fmt.Printf("%s %s (built %s)\n", ServiceName, Version, BuildDate)
	default:
		err = fmt.Errorf("unknown command: %s", command)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func healthcheck(configDir string) error {
	if err := config.Load(configDir); err != nil {
		fmt.Println("No config file, using defaults:", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := api.New(config.GetString("api.serverUrl"), config.GetString("api.apiKey")).Healthcheck(ctx); err != nil {
		return err
	}
	fmt.Println("Telemetry service is online")
	return nil
}

// services is everything run wires up, in teardown order.
type services struct {
	slog     *logging.SlogManager
	logFile  *os.File
	otel     *intOtel.Provider
	influx   *influx.Manager
	dispatch *dispatcher.Dispatcher
	workers  *worker.Manager
	backend  storage.Backend
	monitor  *monitor.Service
}

func run(configDir string) error {
	sessionStart := time.Now()
	svc := &services{slog: logging.NewSlogManager()}
	svc.slog.Setup(logging.Options{Service: ServiceName, Level: "info"})
	logger := svc.slog.Logger()

	if err := config.Load(configDir); err != nil {
		logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		logger.Info("Loaded config", "dir", configDir)
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}
	logPath := logging.LogFilePath(logsDir, ServiceName, sessionStart)
	if _, err := os.Stat(logPath); err == nil {
		os.Rename(logPath, logPath+".old")
	}
	logFile, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	svc.logFile = logFile
	defer svc.close()

	var graylog io.Writer
	if config.GetBool("graylog.enabled") {
		w, err := logging.NewGraylogWriter(config.GetString("graylog.address"), ServiceName)
		if err != nil {
			logger.Error("Failed to connect to Graylog", "error", err)
		} else {
			graylog = w
		}
	}

	otelCfg := config.GetOTelConfig()
	svc.otel, err = intOtel.New(intOtel.Config{
		Enabled:        otelCfg.Enabled,
		ServiceName:    otelCfg.ServiceName,
		ServiceVersion: Version,
		BatchTimeout:   otelCfg.BatchTimeout,
		LogWriter:      logFile,
		MetricWriter:   logFile,
		Endpoint:       otelCfg.Endpoint,
		Insecure:       otelCfg.Insecure,
	})
	if err != nil {
		logger.Error("Failed to initialize OTel provider", "error", err)
		svc.otel, _ = intOtel.New(intOtel.Config{})
	} else if svc.otel.Enabled() {
		logger.Info("OTel provider initialized", "file", logPath, "endpoint", otelCfg.Endpoint)
	}

	level := config.GetString("logLevel")
	svc.slog.Setup(logging.Options{
		Service:  ServiceName,
		Level:    level,
		File:     logFile,
		Graylog:  graylog,
		Provider: svc.otel.LoggerProvider(),
		Context:  svc.logContext,
	})
	logger = svc.slog.Logger()
	logger.Info("Logging to file", "path", logPath, "version", Version)

	zl := logging.NewZerolog(logging.ZerologOptions{Level: level, File: logFile, Graylog: graylog})
	svc.backend, err = createStorageBackend(logger, zl.With().Str("component", "storage").Logger())
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	var metrics worker.Metrics
	svc.influx = influx.NewManager(config.GetInfluxConfig(), zl.With().Str("component", "influx").Logger(),
		filepath.Join(logsDir, fmt.Sprintf("influx_backup.%s.lp.gz", sessionStart.UTC().Format("20060102_150405"))))
	switch err := svc.influx.Connect(context.Background()); {
	case errors.Is(err, influx.ErrDisabled):
		svc.influx = nil
	case err != nil:
		logger.Error("Failed to set up InfluxDB", "error", err)
		svc.influx = nil
	default:
		metrics = svc.influx
	}

	svc.dispatch, err = dispatcher.New(logging.NewDispatcherLogger(zl.With().Str("component", "dispatcher").Logger()))
	if err != nil {
		return fmt.Errorf("dispatcher: %w", err)
	}

	sim := config.GetSimConfig()
	codec, err := streaming.CodecByName(sim.Codec)
	if err != nil {
		return err
	}
	cfg := netsyncConfig(sim, codec)

	var auth *netsync.Authority
	svc.workers = worker.NewManager(worker.Dependencies{
		Backend: svc.backend,
		Metrics: metrics,
		Logger:  logger.With("component", "worker"),
		ServerTime: func() time.Duration {
			if auth == nil {
				return 0
			}
			return auth.Now()
		},
	})
	svc.workers.RegisterHandlers(svc.dispatch)

	newMatch := func() *core.Match {
		key := auth.Mode().Key()
		if svc.influx != nil {
			svc.influx.SetMatch(key)
		}
		return &core.Match{
			Key:     key,
			Level:   cfg.Level.Name,
			Timings: auth.Mode().Timings(),
			Players: auth.Players(),
		}
	}
	auth, err = netsync.NewAuthority(cfg, netsync.Dependencies{
		Logger:     logger,
		Dispatcher: svc.dispatch,
		Telemetry:  svc.workers,
		OnState:    []match.StateFunc{svc.workers.StateListener(newMatch)},
	})
	if err != nil {
		return fmt.Errorf("authority: %w", err)
	}
	defer auth.Close()

	bots, err := joinBots(auth, cfg, sim.Clients, svc.workers.TimeSyncHook, logger)
	if err != nil {
		return err
	}

	svc.monitor = monitor.NewService(monitor.Dependencies{
		Logger: logger.With("component", "monitor"),
		Path:   filepath.Join(logsDir, "status.json"),
	})
	if err := svc.monitor.Start(); err != nil {
		logger.Error("Failed to start status monitor", "error", err)
	}
	publish := func() { svc.monitor.Publish(statusOf(auth, svc.workers, svc.dispatch)) }

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	simulate(ctx, auth, bots, sim, publish)
	publish()

	if svc.workers.Recording() {
		if err := svc.workers.EndMatch(); err != nil {
			logger.Error("Failed to end match record", "error", err)
		}
	}
	report(logger, auth, bots, svc.workers)
	return nil
}

// simulate steps the authority and every bot client at the configured tick
// rate until the duration elapses or ctx is cancelled. publish, when set,
// runs once per simulated second.
func simulate(ctx context.Context, auth *netsync.Authority, bots []*bot, sim config.SimConfig, publish func()) {
	dt := sim.TickInterval()
	players := auth.Players()

	var tick <-chan time.Time
	if sim.Realtime {
		ticker := time.NewTicker(dt)
		defer ticker.Stop()
		tick = ticker.C
	}

	for elapsed := time.Duration(0); sim.Duration <= 0 || elapsed < sim.Duration; elapsed += dt {
		if tick != nil {
			select {
			case <-ctx.Done():
				return
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return
		}

		auth.Tick(dt)
		for _, b := range bots {
			b.Act(players)
			b.client.Tick(dt)
		}
		if publish != nil && (elapsed+dt)/time.Second != elapsed/time.Second {
			publish()
		}
	}
}

func statusOf(auth *netsync.Authority, workers *worker.Manager, dispatch *dispatcher.Dispatcher) monitor.Status {
	queued, inflight := auth.Backlog()
	players := auth.Players()
	scores := make(map[core.PlayerID]int, len(players))
	for _, p := range players {
		scores[p] = auth.Scoreboard().Score(p)
	}
	st := monitor.Status{
		Time:       time.Now(),
		ServerTime: auth.Now(),
		MatchKey:   auth.Mode().Key(),
		State:      auth.Mode().State(),
		Countdown:  auth.Mode().Countdown(),
		Players:    len(players),
		Weapons:    len(auth.Weapons().All()),
		Queued:     queued,
		InFlight:   inflight,
		Skipped:    workers.Skipped(),
		Failed:     workers.Failed(),
		Scores:     scores,
	}
	if dispatch != nil {
		st.Dispatch = dispatch.Stats()
	}
	return st
}

func report(logger *slog.Logger, auth *netsync.Authority, bots []*bot, workers *worker.Manager) {
	board := auth.Scoreboard()
	for _, p := range auth.Players() {
		logger.Info("Final score", "player", p, "score", board.Score(p))
	}
	for _, b := range bots {
		logger.Info("Client summary", "player", b.client.Player(),
			"actions", b.actions, "missed", b.client.Missed(), "batch", b.client.LastBatch(),
			"rtt", b.client.Clock().SingleTripTime()*2)
	}
	logger.Info("Simulation finished", "serverTime", auth.Now().Round(time.Millisecond),
		"top", board.TopPlayers(), "skipped", workers.Skipped(), "failed", workers.Failed())
}

func (s *services) logContext() []slog.Attr {
	if s.workers == nil {
		return nil
	}
	if m, ok := s.workers.Match(); ok {
		return []slog.Attr{slog.String("match", m.Key)}
	}
	return nil
}

// close drains the dispatcher before the backend it writes to, then flushes
// metrics and logs.
func (s *services) close() {
	logger := s.slog.Logger()
	if s.monitor != nil {
		s.monitor.Stop()
	}
	if s.dispatch != nil {
		s.dispatch.Close()
	}
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			logger.Error("Failed to close storage backend", "error", err)
		}
		uploadExport(context.Background(), logger, s.backend)
	}
	if s.influx != nil {
		if err := s.influx.Close(); err != nil {
			logger.Error("Failed to close InfluxDB", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if s.otel != nil {
		if err := s.otel.Shutdown(ctx); err != nil {
			logger.Error("Failed to shut down OTel", "error", err)
		}
	}
	if err := s.slog.Flush(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "flush logs:", err)
	}
	if s.logFile != nil {
		s.logFile.Close()
	}
}

// netsyncConfig builds the shared node configuration from the loaded config.
func netsyncConfig(sim config.SimConfig, codec streaming.Codec) netsync.Config {
	cfg := netsync.DefaultConfig()

	cc := config.GetCombatConfig()
	cfg.Combat.MaxAmmo = cc.MaxAmmo
	cfg.Combat.StartingGrenades = cc.StartingGrenades
	cfg.Combat.StartingAmmo = cc.StartingAmmo
	cfg.Combat.SwapDelay = cc.SwapDelay
	cfg.Combat.ZoomInterpSpeed = cc.ZoomInterpSpeed
	cfg.FOV = cc.DefaultFOV

	mc := config.GetMatchConfig()
	cfg.Timings = mc.Timings()
	cfg.Level.Name = mc.Level
	if mc.LevelWKT != "" {
		cfg.Level.WKT = mc.LevelWKT
	}

	ic := config.GetIntakeConfig()
	cfg.Intake = intake.Config{Capacity: ic.Capacity, RatePerSecond: ic.RatePerSecond, Burst: ic.Burst}
	cfg.SyncFrequency = config.GetClockConfig().SyncFrequency
	cfg.Latency = sim.Latency
	cfg.Codec = codec
	return cfg
}

// joinBots connects n scripted clients spread along a line, each with its
// own loadout lying at its feet.
func joinBots(auth *netsync.Authority, cfg netsync.Config, n int, samples func(core.PlayerID) func(clock.Sample), logger *slog.Logger) ([]*bot, error) {
	bots := make([]*bot, 0, n)
	for i := range n {
		id := core.PlayerID(i + 1)
		at := core.Vector{X: 1000 + 400*float64(i%5), Y: 1000 + 600*float64(i/5)}
		conn, err := auth.Join(id, at)
		if err != nil {
			return nil, fmt.Errorf("join %d: %w", id, err)
		}

		var weapons []core.WeaponID
		for _, name := range []string{loadout[i%len(loadout)], "pistol"} {
			w, err := auth.SpawnWeapon(name, at)
			if err != nil {
				return nil, err
			}
			weapons = append(weapons, w.ID())
		}

		client, err := netsync.NewClient(conn, cfg, netsync.ClientDependencies{
			Logger:   logger,
			OnSample: samples(id),
		})
		if err != nil {
			return nil, fmt.Errorf("client %d: %w", id, err)
		}
		bots = append(bots, newBot(client, weapons, uint64(id)))
	}
	return bots, nil
}
