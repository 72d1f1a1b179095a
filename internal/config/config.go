package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/blasternet/combatsync/pkg/core"
)

// FileName is the configuration file Load looks for.
const FileName = "combatsync.cfg.json"

// startingAmmoKeys maps weapon types to their keys under combat.startingAmmo.
var startingAmmoKeys = map[core.WeaponType]string{
	core.AssaultRifle:    "assaultRifle",
	core.RocketLauncher:  "rocketLauncher",
	core.Pistol:          "pistol",
	core.SubmachineGun:   "smg",
	core.Shotgun:         "shotgun",
	core.SniperRifle:     "sniperRifle",
	core.GrenadeLauncher: "grenadeLauncher",
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds settings for the in-memory SQLite backend.
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// WebSocketConfig holds settings for the streaming backend.
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the telemetry backend.
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// DBConfig is the postgres connection.
type DBConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DSN renders the connection as a libpq keyword string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// CombatConfig is the per-character combat tuning.
type CombatConfig struct {
	MaxAmmo          int
	StartingGrenades int
	StartingAmmo     map[core.WeaponType]int
	SwapDelay        time.Duration
	ZoomInterpSpeed  float64
	DefaultFOV       float64
}

// ClockConfig controls client clock sync.
type ClockConfig struct {
	SyncFrequency time.Duration
}

// MatchConfig is the game mode timeline.
type MatchConfig struct {
	Warmup        time.Duration
	Duration      time.Duration
	Cooldown      time.Duration
	AlertFraction float64
	Level         string
	LevelWKT      string // empty selects the built-in arena
}

// SimConfig drives the headless simulator.
type SimConfig struct {
	TickRate int
	Clients  int
	Latency  time.Duration
	Duration time.Duration
	Codec    string
	Realtime bool // pace ticks against the wall clock
}

// TickInterval is the simulated frame time.
func (c SimConfig) TickInterval() time.Duration {
	if c.TickRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.TickRate)
}

// IntakeConfig bounds the authority request queue.
type IntakeConfig struct {
	Capacity      int
	RatePerSecond float64
	Burst         int
}

// OTelConfig mirrors the otel.* keys.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// InfluxConfig mirrors the influx.* keys.
type InfluxConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Protocol string
	Token    string
	Org      string
	Bucket   string
}

// URL is the server address.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// LoadDefaults installs the defaults without reading a file.
func LoadDefaults() {
	setDefaults()
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("combat.maxAmmo", 500)
	viper.SetDefault("combat.startingGrenades", 4)
	viper.SetDefault("combat.swapDelay", "250ms")
	viper.SetDefault("combat.zoomInterpSpeed", 20.0)
	viper.SetDefault("combat.defaultFOV", 90.0)
	viper.SetDefault("combat.startingAmmo.assaultRifle", 60)
	viper.SetDefault("combat.startingAmmo.rocketLauncher", 8)
	viper.SetDefault("combat.startingAmmo.pistol", 30)
	viper.SetDefault("combat.startingAmmo.smg", 60)
	viper.SetDefault("combat.startingAmmo.shotgun", 10)
	viper.SetDefault("combat.startingAmmo.sniperRifle", 6)
	viper.SetDefault("combat.startingAmmo.grenadeLauncher", 8)

	viper.SetDefault("clock.syncFrequency", "5s")

	viper.SetDefault("match.warmup", "10s")
	viper.SetDefault("match.duration", "120s")
	viper.SetDefault("match.cooldown", "10s")
	viper.SetDefault("match.alertFraction", 0.1)
	viper.SetDefault("match.level", "arena")
	viper.SetDefault("match.levelWKT", "")

	viper.SetDefault("sim.tickRate", 60)
	viper.SetDefault("sim.clients", 2)
	viper.SetDefault("sim.latency", "60ms")
	viper.SetDefault("sim.duration", "150s")
	viper.SetDefault("sim.codec", "msgpack")
	viper.SetDefault("sim.realtime", true)

	viper.SetDefault("intake.capacity", 1024)
	viper.SetDefault("intake.ratePerSecond", 120.0)
	viper.SetDefault("intake.burst", 60)

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "combatsync")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./telemetry")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "")
	viper.SetDefault("storage.websocket.url", "")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "combatsync")
	viper.SetDefault("influx.bucket", "combat_telemetry")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "combatsync")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetCombatConfig returns the combat.* section.
func GetCombatConfig() CombatConfig {
	starting := make(map[core.WeaponType]int, len(startingAmmoKeys))
	for t, key := range startingAmmoKeys {
		starting[t] = viper.GetInt("combat.startingAmmo." + key)
	}
	return CombatConfig{
		MaxAmmo:          viper.GetInt("combat.maxAmmo"),
		StartingGrenades: viper.GetInt("combat.startingGrenades"),
		StartingAmmo:     starting,
		SwapDelay:        viper.GetDuration("combat.swapDelay"),
		ZoomInterpSpeed:  viper.GetFloat64("combat.zoomInterpSpeed"),
		DefaultFOV:       viper.GetFloat64("combat.defaultFOV"),
	}
}

// GetClockConfig returns the clock.* section.
func GetClockConfig() ClockConfig {
	return ClockConfig{SyncFrequency: viper.GetDuration("clock.syncFrequency")}
}

// GetMatchConfig returns the match.* section.
func GetMatchConfig() MatchConfig {
	return MatchConfig{
		Warmup:        viper.GetDuration("match.warmup"),
		Duration:      viper.GetDuration("match.duration"),
		Cooldown:      viper.GetDuration("match.cooldown"),
		AlertFraction: viper.GetFloat64("match.alertFraction"),
		Level:         viper.GetString("match.level"),
		LevelWKT:      viper.GetString("match.levelWKT"),
	}
}

// Timings converts the section into game mode timings.
func (c MatchConfig) Timings() core.MatchTimings {
	return core.MatchTimings{
		Warmup:        c.Warmup,
		Match:         c.Duration,
		Cooldown:      c.Cooldown,
		AlertFraction: c.AlertFraction,
	}
}

// GetSimConfig returns the sim.* section.
func GetSimConfig() SimConfig {
	return SimConfig{
		TickRate: viper.GetInt("sim.tickRate"),
		Clients:  viper.GetInt("sim.clients"),
		Latency:  viper.GetDuration("sim.latency"),
		Duration: viper.GetDuration("sim.duration"),
		Codec:    viper.GetString("sim.codec"),
		Realtime: viper.GetBool("sim.realtime"),
	}
}

// GetIntakeConfig returns the intake.* section.
func GetIntakeConfig() IntakeConfig {
	return IntakeConfig{
		Capacity:      viper.GetInt("intake.capacity"),
		RatePerSecond: viper.GetFloat64("intake.ratePerSecond"),
		Burst:         viper.GetInt("intake.burst"),
	}
}

// GetStorageConfig returns the storage.* section.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetDBConfig returns the db.* section.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetOTelConfig returns the otel.* section.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetInfluxConfig returns the influx.* section.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}
