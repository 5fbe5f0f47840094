package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string

	AuthSecret  string
	TokenTTL    time.Duration
	AdminTokens []string

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	Sandbox Sandbox

	NumProblems   int
	ArtifactsDir  string
	TemplatePath  string // relative to ArtifactsDir
	QuestionsPath string // relative to ArtifactsDir; imported by `import-questions`

	LogLevel  string
	LogFormat string // text|json
}

type Sandbox struct {
	Driver         string   // docker|process
	Image          string   // docker image that compiles+runs the snippet given as its argument
	Command        []string // process driver: argv, snippet is appended as the last argument
	Timeout        time.Duration
	MemoryMB       int
	Pids           int
	CPUs           string
	AllowNetwork   bool
	MaxOutputBytes int
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:               mode,
		HTTPAddr:           envOr("HTTP_ADDR", ":8000"),
		DBDriver:           envOr("DB_DRIVER", "sqlite"),
		DBDSN:              envOr("DB_DSN", ""),
		AuthSecret:         envOr("AUTH_HMAC_SECRET", "codelab-dev-secret"),
		TokenTTL:           envDuration("TOKEN_TTL", 7*24*time.Hour),
		AdminTokens:        csvOr("ADMIN_TOKENS", ""),
		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://codelab.mindengage.ai"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:8000"),
		Sandbox: Sandbox{
			Driver:         envOr("SANDBOX_DRIVER", "docker"),
			Image:          envOr("SANDBOX_IMAGE", "rust-src"),
			Command:        strings.Fields(envOr("SANDBOX_COMMAND", "sh -c")),
			Timeout:        envDuration("SANDBOX_TIMEOUT", 10*time.Second),
			MemoryMB:       envInt("SANDBOX_MEMORY", 512),
			Pids:           envInt("SANDBOX_PIDS", 64),
			CPUs:           envOr("SANDBOX_CPUS", "1"),
			AllowNetwork:   envBool("SANDBOX_NETWORK", false),
			MaxOutputBytes: envInt("SANDBOX_MAX_OUTPUT", 64<<10),
		},
		NumProblems:   envInt("NUM_PROBLEMS", 6),
		ArtifactsDir:  envOr("ARTIFACTS_DIR", "./data"),
		TemplatePath:  envOr("TEMPLATE_PATH", "problems.rs"),
		QuestionsPath: envOr("QUESTIONS_PATH", "questions.toml"),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		LogFormat:     envOr("LOG_FORMAT", defaultLogFormat(mode)),
	}
}

// CORSOrigins picks the origin list for the current mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func defaultLogFormat(m Mode) string {
	if m == ModeOnline {
		return "json"
	}
	return "text"
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return v
}
func envDuration(k string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
