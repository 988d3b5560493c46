package config

import (
	"fmt"
	"time"

	"github.com/sloperunner/engine/internal/sim"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "sloperunner.cfg.json"

// StorageConfig selects and configures the leaderboard store.
type StorageConfig struct {
	Type     string         `json:"type" mapstructure:"type"`
	File     FileConfig     `json:"file" mapstructure:"file"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Memory   MemoryConfig   `json:"memory" mapstructure:"memory"`
	Redis    RedisConfig    `json:"redis" mapstructure:"redis"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

// PostgresConfig holds PostgreSQL store settings. Connection keys live under db.*.
type PostgresConfig struct {
	// Fallback opens storage.sqlite.path when Postgres is unreachable.
	Fallback bool `json:"fallback" mapstructure:"fallback"`
}

// FileConfig holds text file store settings
type FileConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// SQLiteConfig holds SQLite store settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// MemoryConfig holds in-memory store settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// RedisConfig holds Redis store settings
type RedisConfig struct {
	Address  string `json:"address" mapstructure:"address"`
	Password string `json:"password" mapstructure:"password"`
	DB       int    `json:"db" mapstructure:"db"`
	Key      string `json:"key" mapstructure:"key"`
}

// ServerConfig holds leaderboard API settings
type ServerConfig struct {
	Listen        string `json:"listen" mapstructure:"listen"`
	AllowedOrigin string `json:"allowedOrigin" mapstructure:"allowedOrigin"`
	QueueSize     int    `json:"queueSize" mapstructure:"queueSize"`
}

// StreamConfig holds the renderer websocket settings
type StreamConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Listen  string `json:"listen" mapstructure:"listen"`
}

// MonitorConfig holds the play status file settings
type MonitorConfig struct {
	Enabled    bool          `json:"enabled" mapstructure:"enabled"`
	StatusFile string        `json:"statusFile" mapstructure:"statusFile"`
	Interval   time.Duration `json:"interval" mapstructure:"interval"`
}

// GameConfig holds the tick rate and simulation tuning
type GameConfig struct {
	TickRate int        `json:"tickRate" mapstructure:"tickRate"`
	Tuning   sim.Tuning `json:"tuning" mapstructure:"-"`
}

// TickInterval is the wall-clock time between ticks.
func (g GameConfig) TickInterval() time.Duration {
	if g.TickRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(g.TickRate)
}

// InfluxConfig holds run telemetry settings
type InfluxConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	Host      string `json:"host" mapstructure:"host"`
	Port      string `json:"port" mapstructure:"port"`
	Protocol  string `json:"protocol" mapstructure:"protocol"`
	Token     string `json:"token" mapstructure:"token"`
	Org       string `json:"org" mapstructure:"org"`
	Bucket    string `json:"bucket" mapstructure:"bucket"`
	BackupDir string `json:"backupDir" mapstructure:"backupDir"`
}

// URL returns the server base URL.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// GraylogConfig holds GELF log shipping settings
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. Defaults stay in
// effect when the file is missing; the error tells the caller so it can warn.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// SetDefaults registers every default value.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("api.serverUrl", "http://localhost:3000")
	viper.SetDefault("api.timeout", "30s")

	viper.SetDefault("server.listen", ":3000")
	viper.SetDefault("server.allowedOrigin", "http://localhost:5173")
	viper.SetDefault("server.queueSize", 64)

	viper.SetDefault("storage.type", "file")
	viper.SetDefault("storage.file.path", "./data/leaderboard.txt")
	viper.SetDefault("storage.sqlite.path", "./data/leaderboard.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "0s")
	viper.SetDefault("storage.sqlite.dumpPath", "")
	viper.SetDefault("storage.memory.outputDir", "")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.postgres.fallback", true)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "sloperunner")

	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.key", "sloperunner:leaderboard")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "sloperunner")
	viper.SetDefault("influx.bucket", "runs")
	viper.SetDefault("influx.backupDir", "./data/influx")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("stream.enabled", true)
	viper.SetDefault("stream.listen", ":8081")

	viper.SetDefault("monitor.enabled", false)
	viper.SetDefault("monitor.statusFile", "./logs/status.json")
	viper.SetDefault("monitor.interval", "1s")

	t := sim.DefaultTuning()
	viper.SetDefault("game.tickRate", 60)
	viper.SetDefault("game.slopeAngle", t.SlopeAngle)
	viper.SetDefault("game.heightOffset", t.HeightOffset)
	viper.SetDefault("game.baseSpeed", t.BaseSpeed)
	viper.SetDefault("game.speedIncrement", t.SpeedIncrement)
	viper.SetDefault("game.moveSpeed", t.MoveSpeed)
	viper.SetDefault("game.lateralLimit", t.LateralLimit)
	viper.SetDefault("game.spawnHalfWidth", t.SpawnHalfWidth)
	viper.SetDefault("game.slopeHalfWidth", t.SlopeHalfWidth)
	viper.SetDefault("game.boundaryMargin", t.BoundaryMargin)
	viper.SetDefault("game.spawnDistance", t.SpawnDistance)
	viper.SetDefault("game.cullDistance", t.CullDistance)
	viper.SetDefault("game.spawnInterval", t.SpawnInterval)
	viper.SetDefault("game.ticksPerScoreUnit", t.TicksPerScoreUnit)
	viper.SetDefault("game.treeWeight", t.TreeWeight)
	viper.SetDefault("game.skierRadius", t.SkierRadius)
	viper.SetDefault("game.treeRadius", t.TreeRadius)
	viper.SetDefault("game.rockRadius", t.RockRadius)
	viper.SetDefault("game.tiltAngle", t.TiltAngle)
}

// GetStorageConfig returns the leaderboard store configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		File: FileConfig{
			Path: viper.GetString("storage.file.path"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
			Key:      viper.GetString("redis.key"),
		},
		Postgres: PostgresConfig{
			Fallback: viper.GetBool("storage.postgres.fallback"),
		},
	}
}

// GetServerConfig returns the API server configuration.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Listen:        viper.GetString("server.listen"),
		AllowedOrigin: viper.GetString("server.allowedOrigin"),
		QueueSize:     viper.GetInt("server.queueSize"),
	}
}

// GetStreamConfig returns the renderer websocket configuration.
func GetStreamConfig() StreamConfig {
	return StreamConfig{
		Enabled: viper.GetBool("stream.enabled"),
		Listen:  viper.GetString("stream.listen"),
	}
}

// GetMonitorConfig returns the play status file configuration.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:    viper.GetBool("monitor.enabled"),
		StatusFile: viper.GetString("monitor.statusFile"),
		Interval:   viper.GetDuration("monitor.interval"),
	}
}

// GetGameConfig returns the tick rate and tuning, every constant overridable.
func GetGameConfig() GameConfig {
	return GameConfig{
		TickRate: viper.GetInt("game.tickRate"),
		Tuning: sim.Tuning{
			SlopeAngle:        viper.GetFloat64("game.slopeAngle"),
			HeightOffset:      viper.GetFloat64("game.heightOffset"),
			BaseSpeed:         viper.GetFloat64("game.baseSpeed"),
			SpeedIncrement:    viper.GetFloat64("game.speedIncrement"),
			MoveSpeed:         viper.GetFloat64("game.moveSpeed"),
			LateralLimit:      viper.GetFloat64("game.lateralLimit"),
			SpawnHalfWidth:    viper.GetFloat64("game.spawnHalfWidth"),
			SlopeHalfWidth:    viper.GetFloat64("game.slopeHalfWidth"),
			BoundaryMargin:    viper.GetFloat64("game.boundaryMargin"),
			SpawnDistance:     viper.GetFloat64("game.spawnDistance"),
			CullDistance:      viper.GetFloat64("game.cullDistance"),
			SpawnInterval:     viper.GetUint64("game.spawnInterval"),
			TicksPerScoreUnit: viper.GetUint64("game.ticksPerScoreUnit"),
			TreeWeight:        viper.GetFloat64("game.treeWeight"),
			SkierRadius:       viper.GetFloat64("game.skierRadius"),
			TreeRadius:        viper.GetFloat64("game.treeRadius"),
			RockRadius:        viper.GetFloat64("game.rockRadius"),
			TiltAngle:         viper.GetFloat64("game.tiltAngle"),
		},
	}
}

// GetInfluxConfig returns the run telemetry configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:   viper.GetBool("influx.enabled"),
		Host:      viper.GetString("influx.host"),
		Port:      viper.GetString("influx.port"),
		Protocol:  viper.GetString("influx.protocol"),
		Token:     viper.GetString("influx.token"),
		Org:       viper.GetString("influx.org"),
		Bucket:    viper.GetString("influx.bucket"),
		BackupDir: viper.GetString("influx.backupDir"),
	}
}

// GetGraylogConfig returns the GELF log shipping configuration.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// AllSettings returns the merged configuration, for printing.
func AllSettings() map[string]any {
	return viper.AllSettings()
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

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
