package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Secrets (Stripe keys, JWT secret, API keys) are
// strings passed down to explicitly constructed clients; nothing in the
// application reads the environment after startup.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	StripeSecretKey     string // Stripe API secret key (sk_test_... / sk_live_...)
	StripeWebhookSecret string // Stripe webhook signing secret (whsec_...)

	SiteOrigin string // canonical site origin, used for checkout return URLs

	ResendAPIKey     string // Resend API key; empty disables confirmation email
	FromEmail        string // transactional sender address
	ButtondownAPIKey string // Buttondown API key; empty disables newsletter sync

	AdminEmail        string // admin login email
	AdminPasswordHash string // bcrypt hash of the admin password
	JWTSecret         string // secret used to sign admin access tokens
	AccessTTLMin      int    // admin access token time-to-live in minutes
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message. Side-effect
// integrations (email, newsletter) are optional and degrade to logged
// no-ops when their keys are absent.
func Load() Config {
	return Config{
		Env:  must("APP_ENV"),
		Port: must("APP_PORT"),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		StripeSecretKey:     must("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: must("STRIPE_WEBHOOK_SECRET"),

		SiteOrigin: envDefault("SITE_ORIGIN", "https://appletondrawingclub.com"),

		ResendAPIKey:     os.Getenv("RESEND_API_KEY"),
		FromEmail:        envDefault("TRANSACTIONAL_FROM_EMAIL", "noreply@appletondrawingclub.com"),
		ButtondownAPIKey: os.Getenv("BUTTONDOWN_API_KEY"),

		AdminEmail:        must("ADMIN_EMAIL"),
		AdminPasswordHash: must("ADMIN_PASSWORD_HASH"),
		JWTSecret:         must("JWT_SECRET"),
		AccessTTLMin:      mustInt("ACCESS_TOKEN_TTL_MIN"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// envDefault returns the value of the environment variable or the fallback
// when it is unset or empty.
func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
