// Package config resolves runtime configuration from environment
// variables and CLI flags, and the persisted-state directory layout of
// spec.md §6.
//
// Grounded on Pasithea0-api-insight's internal/config/config.go
// (env-first Config struct with sensible defaults), loaded via
// github.com/joho/godotenv the way that repo's main.go does; the
// per-user/portable data directory split and Steam auto-detection are
// generalized from original_source/src/titrack/config/settings.py.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration for one titrack process.
type Config struct {
	DataDir  string
	DBPath   string
	LogPath  string
	SeedFile string

	Port        int
	NoWindow    bool
	Overlay     bool
	OverlayOnly bool

	CloudBaseURL string
	CloudAnonKey string
}

const (
	envCloudBaseURL = "TITRACK_CLOUD_BASE_URL"
	envCloudAnonKey = "TITRACK_CLOUD_ANON_KEY"
	envLogPath      = "TITRACK_LOG_PATH"
	envPort         = "TITRACK_PORT"

	// DefaultPort is the HTTP boundary's default loopback port.
	DefaultPort = 47331

	// LogFileMaxBytes and LogFileBackups name a rotation policy of
	// 5 MiB and 3 backups. Nothing reads them: internal/log appends to a
	// single file and does not rotate it.
	LogFileMaxBytes = 5 * 1024 * 1024
	LogFileBackups  = 3
)

// steamPaths are common Windows Steam library install locations for the
// tracked game, checked in order when no explicit log path is configured.
var steamPaths = []string{
	`C:\Program Files (x86)\Steam\steamapps\common\Torchlight Infinite`,
	`C:\Program Files\Steam\steamapps\common\Torchlight Infinite`,
	`D:\Steam\steamapps\common\Torchlight Infinite`,
	`D:\SteamLibrary\steamapps\common\Torchlight Infinite`,
	`E:\SteamLibrary\steamapps\common\Torchlight Infinite`,
}

const logRelativePath = `UE_Game/Torchlight/Saved/Logs/UE_game.log`

// Load reads .env (if present) and environment variables into a Config.
// portable places the data directory (and with it the Store file) in a
// "data" folder beside the executable instead of the per-user config
// directory.
func Load(portable bool) (*Config, error) {
	_ = godotenv.Load()

	dataDir, err := resolveDataDir(portable)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:      dataDir,
		DBPath:       filepath.Join(dataDir, "tracker.db"),
		LogPath:      getenvDefault(envLogPath, ""),
		Port:         DefaultPort,
		CloudBaseURL: os.Getenv(envCloudBaseURL),
		CloudAnonKey: os.Getenv(envCloudAnonKey),
	}
	if cfg.LogPath == "" {
		cfg.LogPath = findGameLogFile()
	}
	if v := os.Getenv(envPort); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			cfg.Port = p
		}
	}

	return cfg, nil
}

// CloudEnabled reports whether both remote aggregation environment
// variables are set, per spec.md §6.
func (c *Config) CloudEnabled() bool {
	return c.CloudBaseURL != "" && c.CloudAnonKey != ""
}

// DeviceUUIDPath is where the process-stable device identifier is
// persisted alongside the Store file.
func (c *Config) DeviceUUIDPath() string {
	return filepath.Join(c.DataDir, "device_uuid")
}

// LegacyDBPath is the deprecated location the Store probes and, if
// found, copies forward from at startup (spec.md §6).
func (c *Config) LegacyDBPath() string {
	return filepath.Join(c.DataDir, "titrack_legacy.db")
}

func resolveDataDir(portable bool) (string, error) {
	if portable {
		exe, err := os.Executable()
		if err != nil {
			return "", err
		}
		return filepath.Join(filepath.Dir(exe), "data"), nil
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "titrack"), nil
}

// findGameLogFile auto-detects the game log among common Steam library
// locations, mirroring the original implementation's search order.
// Returns "" if none is found; the collector then reports
// source-unavailable rather than failing startup.
func findGameLogFile() string {
	if runtime.GOOS != "windows" {
		return ""
	}
	for _, base := range steamPaths {
		candidate := filepath.Join(base, filepath.FromSlash(logRelativePath))
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
