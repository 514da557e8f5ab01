package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses duration values

	"github.com/joho/godotenv"

	"github.com/labreserve/labreserve/internal/model"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. The types reflect how the values are used
// in the application: strings for identifiers and secrets, durations
// for windows, ints for costs.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing
	AMQPURL        string // RabbitMQ URL; empty disables eventing

	Booking BookingConfig // reservation policy knobs
}

// BookingConfig carries the reservation policy settings consumed by
// the booking service and the completion sweeper.
type BookingConfig struct {
	MinUnit            time.Duration // shortest bookable duration
	DefaultMaxDuration time.Duration // max reservation length unless the lab overrides it
	CancellationWindow time.Duration // how long before start a requester may still cancel
	AllowLateCancel    bool          // lift the cancellation window for requesters
	AutoApproveLect    bool          // lecturer reservations skip approval
	AutoApproveStud    bool          // student reservations skip approval
	PeerApproval       bool          // lecturers may decide student requests
	SweepInterval      time.Duration // how often elapsed reservations are completed
}

// AutoApprove returns the per-role auto-approval map in the shape the
// booking service consumes.
func (b BookingConfig) AutoApprove() map[string]bool {
	return map[string]bool{
		model.RoleLecturer: b.AutoApproveLect,
		model.RoleStudent:  b.AutoApproveStud,
	}
}

// Load reads configuration values from environment variables and
// returns a Config. Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message.
// Booking policy variables all have sensible defaults.
func Load() Config {
	// Populate the environment from .env when present; real env vars win.
	_ = godotenv.Load()

	return Config{
		Env:            must("APP_ENV"),      // environment (dev/test/prod)
		Port:           must("APP_PORT"),     // port to bind the HTTP server
		DBUser:         must("DB_USER"),      // database user
		DBPass:         os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:         must("DB_HOST"),      // database host
		DBPort:         must("DB_PORT"),      // database port
		DBName:         must("DB_NAME"),      // database name
		JWTSecret:      must("JWT_SECRET"),   // secret used for signing JWTs
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		AMQPURL:        os.Getenv("RABBITMQ_URL"), // empty disables event publishing
		Booking: BookingConfig{
			MinUnit:            envDur("BOOKING_MIN_UNIT", 30*time.Minute),
			DefaultMaxDuration: envDur("BOOKING_MAX_DURATION", 4*time.Hour),
			CancellationWindow: envDur("CANCELLATION_WINDOW", 24*time.Hour),
			AllowLateCancel:    envBool("ALLOW_LATE_CANCEL", false),
			AutoApproveLect:    envBool("AUTO_APPROVE_LECTURER", false),
			AutoApproveStud:    envBool("AUTO_APPROVE_STUDENT", false),
			PeerApproval:       envBool("PEER_APPROVAL", false),
			SweepInterval:      envDur("COMPLETION_SWEEP_INTERVAL", time.Minute),
		},
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an
// integer. If conversion fails, the application logs a fatal error and
// exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
