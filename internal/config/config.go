package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Env      string
	LogLevel string

	// BotID names this bot identity, conventionally "<pharmacy>_<state>"
	// (e.g. "weis_pa"). The state suffix is the search region the portal
	// expects, and the prefix labels diagnostics and audit files.
	BotID string

	PortalURL    string
	WebDriverURL string

	PatientsFile string
	LockFile     string // defaults to PatientsFile + ".lock"
	OutputDir    string

	// DayOffset is the minimum number of days in the future to search;
	// each patient may raise it further via their own min_date_offset.
	DayOffset int

	// Live controls whether the final booking step answers "Yes". When
	// false every attempt stops at the last screen without reserving
	// anything, which is the fail-safe for testing.
	Live bool

	// TimeOrder selects how acceptable time-of-day options are ordered
	// before picking one: forward, reverse, swap or shuffle.
	TimeOrder string

	// RunDays are the weekdays on which the sleep interval is recomputed;
	// the portal restocks on a rough weekly rhythm.
	RunDays     []time.Weekday
	RestockHour int

	CacheTTL    time.Duration
	SwapProb    float64
	StepTimeout time.Duration

	StatusAddr string

	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// OpsEmail receives a copy of every booking confirmation.
	OpsEmail string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BotID: getEnv("BOT_ID", "generic_pa"),

		PortalURL:    getEnv("PORTAL_URL", ""),
		WebDriverURL: getEnv("WEBDRIVER_URL", "http://127.0.0.1:4444"),

		PatientsFile: getEnv("PATIENTS_FILE", "input/patients.json"),
		LockFile:     getEnv("LOCK_FILE", ""),
		OutputDir:    getEnv("OUTPUT_DIR", "output"),

		DayOffset: getEnvAsInt("DAY_OFFSET", 2),
		Live:      getEnvAsBool("LIVE", false),
		TimeOrder: strings.ToLower(getEnv("TIME_ORDER", "shuffle")),

		RestockHour: getEnvAsInt("RESTOCK_HOUR", 11),

		CacheTTL:    getEnvAsDuration("CACHE_TTL", time.Minute),
		SwapProb:    getEnvAsFloat("SWAP_PROB", 0.5),
		StepTimeout: getEnvAsDuration("STEP_TIMEOUT", 45*time.Second),

		StatusAddr: getEnv("STATUS_ADDR", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Appointment Finder"),

		OpsEmail: getEnv("OPS_EMAIL", ""),
	}

	if cfg.PortalURL == "" {
		return nil, fmt.Errorf("config: PORTAL_URL is required")
	}
	if cfg.LockFile == "" {
		cfg.LockFile = cfg.PatientsFile + ".lock"
	}

	days, err := ParseRunDays(getEnv("RUN_DAYS", "Mon,Wed,Fri,Sat"))
	if err != nil {
		return nil, err
	}
	cfg.RunDays = days

	switch cfg.TimeOrder {
	case "forward", "reverse", "swap", "shuffle":
	default:
		return nil, fmt.Errorf("config: unknown TIME_ORDER %q", cfg.TimeOrder)
	}

	return cfg, nil
}

// BotState returns the region suffix of the bot ID, upper-cased, which is the
// state the portal search screen expects.
func (c *Config) BotState() string {
	parts := strings.Split(c.BotID, "_")
	return strings.ToUpper(parts[len(parts)-1])
}

// BotName returns the pharmacy prefix of the bot ID.
func (c *Config) BotName() string {
	return strings.Split(c.BotID, "_")[0]
}

// ParseRunDays parses a comma-separated list of weekday names, accepting
// either full names or the first three letters.
func ParseRunDays(s string) ([]time.Weekday, error) {
	names := map[string]time.Weekday{
		"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
		"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
		"sat": time.Saturday,
	}
	var days []time.Weekday
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if len(part) > 3 {
			part = part[:3]
		}
		day, ok := names[part]
		if !ok {
			return nil, fmt.Errorf("config: unknown weekday %q in RUN_DAYS", part)
		}
		days = append(days, day)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("config: RUN_DAYS is empty")
	}
	return days, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
