package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
)

// OAuthProviderConfig carries the client credentials of one OAuth provider.
// The redirect URI is provider-fixed: it must match what is registered in
// the provider's console.
type OAuthProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Enabled reports whether the provider was configured at all. Providers
// without credentials are simply not registered.
func (c OAuthProviderConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable; the types reflect how the values are used in the
// application.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret        string // secret used to sign JWTs
	JWTAlgorithm     string // signing algorithm; only HS256 is supported
	AccessTTLMin     int    // access token time-to-live in minutes
	RefreshTTLDays   int    // refresh token time-to-live in days
	EmailTokenTTLMin int    // verify / reset token time-to-live in minutes
	RegistrationOpen bool   // whether self-registration is allowed
	BcryptCost       int    // bcrypt cost for password hashing
	EmailFromName    string // display name of the email sender identity
	EmailFromAddress string // address of the email sender identity
	PublicBaseURL    string // base URL embedded into email links
	OAuth            map[string]OAuthProviderConfig
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values cause
// the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:    getenv("APP_ENV", "dev"),
		Port:   getenv("APP_PORT", "8080"),
		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		JWTSecret:        must("JWT_SECRET_KEY"),
		JWTAlgorithm:     mustAlgorithm(getenv("JWT_ALGORITHM", "HS256")),
		AccessTTLMin:     envInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30),
		RefreshTTLDays:   envInt("REFRESH_TOKEN_EXPIRE_DAYS", 60),
		EmailTokenTTLMin: envInt("EMAIL_RESET_TOKEN_EXPIRE_MINUTES", 15),
		RegistrationOpen: envBool("USER_REGISTRATION_ALLOWED", true),
		BcryptCost:       envInt("BCRYPT_COST", 12),
		EmailFromName:    getenv("EMAIL_FROM_NAME", "Auth Service"),
		EmailFromAddress: getenv("EMAIL_FROM_ADDRESS", "no-reply@localhost"),
		PublicBaseURL:    getenv("PUBLIC_BASE_URL", "http://localhost:8080"),

		OAuth: map[string]OAuthProviderConfig{
			"google": loadOAuth("GOOGLE"),
			"yandex": loadOAuth("YANDEX"),
			"github": loadOAuth("GITHUB"),
		},
	}
}

// loadOAuth reads the OAUTH_<PROVIDER>_* triple for one provider.
func loadOAuth(name string) OAuthProviderConfig {
	return OAuthProviderConfig{
		ClientID:     os.Getenv("OAUTH_" + name + "_CLIENT_ID"),
		ClientSecret: os.Getenv("OAUTH_" + name + "_CLIENT_SECRET"),
		RedirectURI:  os.Getenv("OAUTH_" + name + "_REDIRECT_URI"),
	}
}

// supportedAlgorithm reports whether the token codec can sign with the
// given JWT algorithm.
func supportedAlgorithm(alg string) bool {
	return alg == "HS256"
}

// mustAlgorithm rejects any configured signing algorithm the codec does not
// implement. Refusing to start beats silently signing with something other
// than what the deployment asked for.
func mustAlgorithm(alg string) string {
	if !supportedAlgorithm(alg) {
		log.Fatalf("unsupported JWT_ALGORITHM %q: only HS256 is supported", alg)
	}
	return alg
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

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

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

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}
