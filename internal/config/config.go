package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and limits.
type Config struct {
	Env             string // application environment (e.g. "dev", "prod")
	Port            string // HTTP port to listen on
	DBUser          string // database username
	DBPass          string // database password (optional)
	DBHost          string // database host address
	DBPort          string // database port number
	DBName          string // database name
	JWTSecret       string // secret used to sign session tokens
	SessionTTLHours int    // session token time-to-live in hours
	HoldTTLSec      int    // default hold time-to-live in seconds
	HoldMaxTTLSec   int    // upper bound on client-requested hold TTLs
	HoldMaxSeats    int    // maximum seats per hold (product policy)
	ReapIntervalSec int    // expiry reaper tick interval in seconds
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  The hold policy
// knobs are optional and fall back to product defaults.
func Load() Config {
	return Config{
		Env:             must("APP_ENV"),                  // environment (dev/test/prod)
		Port:            must("APP_PORT"),                 // port to bind the HTTP server
		DBUser:          must("DB_USER"),                  // database user
		DBPass:          os.Getenv("DB_PASS"),             // database password (empty allowed)
		DBHost:          must("DB_HOST"),                  // database host
		DBPort:          must("DB_PORT"),                  // database port
		DBName:          must("DB_NAME"),                  // database name
		JWTSecret:       must("JWT_SECRET"),               // secret for signing session tokens
		SessionTTLHours: optInt("SESSION_TTL_HOURS", 24),  // session lifetime
		HoldTTLSec:      optInt("HOLD_TTL_SEC", 900),      // default hold TTL (15 minutes)
		HoldMaxTTLSec:   optInt("HOLD_MAX_TTL_SEC", 1800), // TTL ceiling
		HoldMaxSeats:    optInt("HOLD_MAX_SEATS", 5),      // seats per hold
		ReapIntervalSec: optInt("REAP_INTERVAL_SEC", 2),   // reaper tick
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

// optInt retrieves an optional integer environment variable, returning
// the given default when unset.  An unparsable value is fatal so a typo
// never silently changes the hold policy.
func optInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}
