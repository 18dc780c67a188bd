// Package config loads server configuration from environment variables.
//
// WHY A CONFIG STRUCT INSTEAD OF os.Getenv EVERYWHERE?
// Scattering os.Getenv calls across packages creates hidden global state —
// you can't tell what a component needs without reading its whole source.
// Loading everything into one struct at startup and passing it down makes
// every dependency explicit, and lets tests construct a Config literal
// without touching the process environment.
//
// We use caarlos0/env to map env vars to struct fields via tags. The tag
// syntax is `env:"NAME"` with optional `envDefault:"..."` for fallbacks.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration for the server.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/coursemate.db"`

	// FrontendURL is where OAuth callbacks redirect to after a successful
	// login, e.g. "http://localhost:3000".
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	// Google OAuth app credentials (direct authorization-code flow).
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL"`

	// Supabase project settings (delegated flow). SupabaseSecret is the
	// service-role key — it grants admin API access, never expose it to
	// clients. SupabaseJWTSecret verifies access tokens Supabase issues.
	SupabaseURL       string `env:"SUPABASE_URL"`
	SupabaseKey       string `env:"SUPABASE_KEY"`
	SupabaseSecret    string `env:"SUPABASE_SECRET"`
	SupabaseJWTSecret string `env:"SUPABASE_JWT_SECRET"`

	// JWTSecret signs the access tokens this server issues after login.
	JWTSecret string `env:"JWT_SECRET"`

	// UseSupabaseAuth switches the login endpoint to hand out Supabase's
	// authorize URL instead of Google's consent URL.
	UseSupabaseAuth bool `env:"USE_SUPABASE_AUTH" envDefault:"true"`

	// TrustUnverifiedClaims disables signature verification on bearer
	// tokens sent to the sync endpoint. This is an auth bypass — it exists
	// only for local development against a Supabase project whose JWT
	// secret isn't at hand. It must NEVER be enabled in production, which
	// is why the default is false and main logs a warning when it's on.
	TrustUnverifiedClaims bool `env:"TRUST_UNVERIFIED_CLAIMS" envDefault:"false"`
}

// Load reads configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing environment: %w", err)
	}
	return cfg, nil
}
