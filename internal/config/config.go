package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Roster    RosterConfig
	Ledger    LedgerConfig
	Database  DatabaseConfig
	MariaDB   MariaDBConfig
	Match     MatchConfig
	Embedding EmbeddingConfig
	Admin     AdminConfig
	Web       WebConfig
	Export    ExportConfig
	Angles    []string
	LogFile   string
}

type RosterConfig struct {
	Backend string // file (default) or postgres
	Path    string // gob file for the file backend
}

type LedgerConfig struct {
	Backend string // csv (default), postgres or mariadb
	Path    string // CSV file for the csv backend
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type MariaDBConfig struct {
	DSN string // e.g. attendance:attendance@tcp(mariadb:3306)/attendance
}

type MatchConfig struct {
	Tolerance float64
	Index     string // exact (default) or hnsw
}

// UseIndex reports whether the HNSW candidate index is enabled.
func (c MatchConfig) UseIndex() bool {
	return c.Index == "hnsw"
}

type EmbeddingConfig struct {
	URL string // defaults to http://localhost:8000
	Dim int    // expected descriptor length, 0 accepts any
}

type AdminConfig struct {
	Password     string
	PasswordHash string // bcrypt hash, takes precedence over Password
}

type WebConfig struct {
	Port           int
	Host           string
	SessionSecret  string
	AllowedOrigins []string
}

type ExportConfig struct {
	Dir string // daily export is disabled when empty
	At  string // HH:MM local time
}

type defaults struct {
	Angles []string `yaml:"angles"`
	Match  struct {
		Tolerance float64 `yaml:"tolerance"`
	} `yaml:"match"`
	Export struct {
		At string `yaml:"at"`
	} `yaml:"export"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat is envInt for positive floats.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func Load() *Config {
	var d defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Roster: RosterConfig{
			Backend: strings.ToLower(envString("ROSTER_BACKEND", "file")),
			Path:    envString("ROSTER_PATH", "face_data.gob"),
		},
		Ledger: LedgerConfig{
			Backend: strings.ToLower(envString("LEDGER_BACKEND", "csv")),
			Path:    envString("LEDGER_PATH", "attendance.csv"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		MariaDB: MariaDBConfig{
			DSN: os.Getenv("MARIADB_DSN"),
		},
		Match: MatchConfig{
			Tolerance: envFloat("MATCH_TOLERANCE", d.Match.Tolerance),
			Index:     strings.ToLower(envString("MATCH_INDEX", "exact")),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
			Dim: envInt("EMBEDDING_DIM", 0),
		},
		Admin: AdminConfig{
			Password:     os.Getenv("ADMIN_PASSWORD"),
			PasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		},
		Web: WebConfig{
			Port:           envInt("WEB_PORT", 8085),
			Host:           envString("WEB_HOST", "0.0.0.0"),
			SessionSecret:  os.Getenv("WEB_SESSION_SECRET"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Export: ExportConfig{
			Dir: os.Getenv("EXPORT_DIR"),
			At:  envString("EXPORT_AT", d.Export.At),
		},
		Angles:  d.Angles,
		LogFile: os.Getenv("LOG_FILE"),
	}
}
