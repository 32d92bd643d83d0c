package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses duration-valued settings
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Required values are enforced by must() at load
// time; tunables of the allocation engine fall back to sane defaults so a
// bare deployment behaves like the production system.
type Config struct {
	Env            string        // application environment (e.g. "dev", "prod")
	Port           string        // HTTP port to listen on
	DBUser         string        // database username
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
	JWTSecret      string        // secret used to verify upstream-issued JWTs
	HoldTTL        time.Duration // lifetime of a seat hold before it expires
	OfferWindow    time.Duration // how long a waitlist offer remains acceptable
	SweepInterval  time.Duration // tick interval of the in-process sweeper
	LimitedPercent int           // availability percentage at or below which status is "limited"
	VoluntaryPct   int           // voluntary bump compensation as percent of fare
	InvoluntaryPct int           // involuntary bump compensation as percent of fare
	CompCapCents   int64         // hard cap on a single compensation amount
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty password is allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		HoldTTL:        envDur("HOLD_TTL", 10*time.Minute),
		OfferWindow:    envDur("OFFER_WINDOW", 24*time.Hour),
		SweepInterval:  envDur("SWEEP_INTERVAL", time.Minute),
		LimitedPercent: envInt("LIMITED_PERCENT", 10),
		VoluntaryPct:   envInt("VOLUNTARY_COMP_PERCENT", 125),
		InvoluntaryPct: envInt("INVOLUNTARY_COMP_PERCENT", 200),
		CompCapCents:   int64(envInt("COMP_CAP_CENTS", 135000)),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// envStr returns the value of an optional variable or the given default.
func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// envInt returns an optional integer variable or the default when unset or
// unparsable.
func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

// envBool interprets common truthy/falsy spellings; anything else yields the
// default.
func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

// envDur parses an optional duration variable ("90s", "5m") falling back to
// the default on absence or parse failure.
func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
