package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

const (
	DefaultAPIVersion = "2025-07"
	defaultLogLevel   = "info"
	defaultPort       = "8080"
)

type Options struct {
	runAddr            string
	logLevel           string
	dataBaseDSN        string
	storeDomain        string
	accessToken        string
	revalidationSecret string
	apiVersion         string
}

func NewOptions() *Options {
	return new(Options)
}

// RegisterFlags binds the options to fs. Environment variables supply the
// defaults so flags only need to be passed to override them.
func (o *Options) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.runAddr, "address", "a", getEnvOrDefault("RUN_ADDRESS", ":"+getEnvOrDefault("PORT", defaultPort)), "address and port to run server")
	fs.StringVarP(&o.logLevel, "log-level", "l", getEnvOrDefault("LOG_LEVEL", defaultLogLevel), "log level")
	fs.StringVarP(&o.dataBaseDSN, "database", "d", getEnvOrDefault("DATABASE_URI", ""), "postgres connection string for the cache; empty keeps the cache in memory")
	fs.StringVar(&o.storeDomain, "domain", getEnvOrDefault("SHOPIFY_STORE_DOMAIN", ""), "shopify store domain")
	fs.StringVar(&o.accessToken, "token", getEnvOrDefault("SHOPIFY_STOREFRONT_ACCESS_TOKEN", ""), "storefront API access token")
	fs.StringVar(&o.revalidationSecret, "revalidation-secret", getEnvOrDefault("SHOPIFY_REVALIDATION_SECRET", ""), "shared secret expected on revalidation webhooks")
	fs.StringVar(&o.apiVersion, "api-version", getEnvOrDefault("SHOPIFY_API_VERSION", DefaultAPIVersion), "storefront API version")
}

// Validate reports missing settings the upstream API cannot work without.
func (o *Options) Validate() error {
	var missing []string
	if strings.TrimSpace(o.storeDomain) == "" {
		missing = append(missing, "SHOPIFY_STORE_DOMAIN")
	}
	if strings.TrimSpace(o.accessToken) == "" {
		missing = append(missing, "SHOPIFY_STOREFRONT_ACCESS_TOKEN")
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (o *Options) RunAddr() string {
	return o.runAddr
}

func (o *Options) LogLevel() string {
	return o.logLevel
}

func (o *Options) DataBaseDSN() string {
	return o.dataBaseDSN
}

// StoreDomain returns the store domain with an https:// scheme, or "" when
// unset. An explicit http:// domain is kept for local mocks.
func (o *Options) StoreDomain() string {
	if o.storeDomain == "" || strings.HasPrefix(o.storeDomain, "http://") {
		return o.storeDomain
	}
	return EnsureStartsWith(o.storeDomain, "https://")
}

func (o *Options) AccessToken() string {
	return o.accessToken
}

func (o *Options) RevalidationSecret() string {
	return o.revalidationSecret
}

func (o *Options) APIVersion() string {
	return o.apiVersion
}

// EnsureStartsWith prefixes s with prefix unless it already carries it.
func EnsureStartsWith(s, prefix string) string {
	if strings.HasPrefix(s, prefix) {
		return s
	}
	return prefix + s
}

// getEnvOrDefault reads an environment variable or returns a default value if the variable is not set or is empty.
func getEnvOrDefault(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// LoadEnvFile loads variables from path into the environment without
// overriding ones already set. It reports whether the file was found.
func LoadEnvFile(path string) bool {
	return godotenv.Load(path) == nil
}
