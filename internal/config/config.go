package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type AppConfig struct {
	API      *APIConfig
	Gin      *GinConfig
	Postgres *PostgresConfig
	Stripe   *StripeConfig
	Firebase *FirebaseConfig
}

// APIConfig holds the admin email and CORS origins behind a lock: they are
// read per request and replaced when the config file changes.
type APIConfig struct {
	Environment   string
	Port          string
	BaseURL       string
	HomeURL       string
	JWTSigningKey string
	// TimeZone is the IANA zone used for dates in exports.
	TimeZone      string

	mu          sync.RWMutex
	adminEmail  string
	corsDomains []string
}

func (c *APIConfig) AdminEmail() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.adminEmail
}

func (c *APIConfig) SetAdminEmail(email string) {
	c.mu.Lock()
	c.adminEmail = strings.ToLower(strings.TrimSpace(email))
	c.mu.Unlock()
}

func (c *APIConfig) AllowedCORSDomains() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.corsDomains
}

func (c *APIConfig) SetAllowedCORSDomains(domains []string) {
	c.mu.Lock()
	c.corsDomains = domains
	c.mu.Unlock()
}

type GinConfig struct {
	Mode string
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DB       string
	SSLMode  string
}

func (c *PostgresConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DB, sslMode)
}

type StripeConfig struct {
	SecretKey      string
	PublishableKey string
	Currency       string
}

type FirebaseConfig struct {
	CredentialsFile string
	StorageBucket   string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.environment", "development")
	v.SetDefault("api.port", "8080")
	v.SetDefault("api.baseurl", "localhost:8080")
	v.SetDefault("api.homeurl", "/")
	v.SetDefault("api.timezone", "UTC")
	v.SetDefault("gin.mode", "debug")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("stripe.currency", "usd")
}

// Load reads the yaml file at path, lets environment variables override it
// (api.port -> API_PORT) and watches the file for changes.
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("v.ReadInConfig -> %w", err)
	}

	conf := fromViper(v)
	if conf.API.JWTSigningKey == "" {
		return nil, fmt.Errorf("api.jwtsigningkey is required")
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		zap.L().Info("config file changed", zap.String("file", e.Name), zap.String("op", e.Op.String()))
		conf.API.SetAdminEmail(v.GetString("api.adminemail"))
		conf.API.SetAllowedCORSDomains(v.GetStringSlice("api.allowedcorsdomains"))
	})
	v.WatchConfig()

	return conf, nil
}

func fromViper(v *viper.Viper) *AppConfig {
	api := &APIConfig{
		Environment:   v.GetString("api.environment"),
		Port:          v.GetString("api.port"),
		BaseURL:       v.GetString("api.baseurl"),
		HomeURL:       v.GetString("api.homeurl"),
		JWTSigningKey: v.GetString("api.jwtsigningkey"),
		TimeZone:      v.GetString("api.timezone"),
	}
	api.SetAdminEmail(v.GetString("api.adminemail"))
	api.SetAllowedCORSDomains(v.GetStringSlice("api.allowedcorsdomains"))

	return &AppConfig{
		API: api,
		Gin: &GinConfig{
			Mode: v.GetString("gin.mode"),
		},
		Postgres: &PostgresConfig{
			Host:     v.GetString("postgres.host"),
			Port:     v.GetString("postgres.port"),
			User:     v.GetString("postgres.user"),
			Password: v.GetString("postgres.password"),
			DB:       v.GetString("postgres.db"),
			SSLMode:  v.GetString("postgres.sslmode"),
		},
		Stripe: &StripeConfig{
			SecretKey:      v.GetString("stripe.secretkey"),
			PublishableKey: v.GetString("stripe.publishablekey"),
			Currency:       v.GetString("stripe.currency"),
		},
		Firebase: &FirebaseConfig{
			CredentialsFile: v.GetString("firebase.credentialsfile"),
			StorageBucket:   v.GetString("firebase.storagebucket"),
		},
	}
}
