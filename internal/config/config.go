package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Supported remote store backends.
const (
	BackendDropbox = "dropbox"
	BackendGCS     = "gcs"
	BackendLocal   = "local"
	BackendMemory  = "memory"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Paths     PathsConfig
	Shop      ShopConfig
	Sheets    SheetsConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	WhatsApp  WhatsAppConfig
	Reporting ReportingConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port     string
	LogLevel string
}

// StoreConfig selects and configures the remote blob store.
type StoreConfig struct {
	Backend string

	DropboxAppKey       string
	DropboxAppSecret    string
	DropboxRefreshToken string
	DropboxAPIURL       string
	DropboxContentURL   string

	GCSBucket             string
	GoogleCredentialsPath string

	LocalDir string
}

// DropboxConfig is the subset of StoreConfig the Dropbox client needs.
type DropboxConfig struct {
	AppKey       string
	AppSecret    string
	RefreshToken string
	APIURL       string
	ContentURL   string
}

// Dropbox extracts the Dropbox client settings.
func (s StoreConfig) Dropbox() DropboxConfig {
	return DropboxConfig{
		AppKey:       s.DropboxAppKey,
		AppSecret:    s.DropboxAppSecret,
		RefreshToken: s.DropboxRefreshToken,
		APIURL:       s.DropboxAPIURL,
		ContentURL:   s.DropboxContentURL,
	}
}

// PathsConfig contains the remote locations of every persisted file.
type PathsConfig struct {
	Catalog       string
	StockTable    string
	StockCatalog  string
	SalesLedger   string
	InvoiceFolder string
}

// ShopConfig holds the static shop identity printed on invoices.
type ShopConfig struct {
	Name                   string
	Address                string
	Registration           string
	Currency               string
	DefaultDiscountPercent string
	Timezone               string
	LogoPath               string
}

// SheetsConfig contains configuration required to mirror ledger rows to Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	LedgerRange     string
}

// Enabled reports whether the sheets mirror should be wired.
func (s SheetsConfig) Enabled() bool {
	return s.CredentialsPath != "" && s.SpreadsheetID != ""
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// Enabled reports whether daily reports should be stored in MongoDB.
func (m MongoDBConfig) Enabled() bool {
	return m.URI != ""
}

// RedisConfig holds the settings of the shared write lock.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether ledger writes are serialized through Redis.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	APIVersion    string
}

// Enabled reports whether outbound WhatsApp messages can be sent.
func (w WhatsAppConfig) Enabled() bool {
	return w.AccessToken != "" && w.PhoneNumberID != ""
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
	Recipient    string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are acceptable when configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	redisDB, err := strconv.Atoi(getenvWithDefault("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("REDIS_DB must be an integer: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getenvWithDefault("APP_PORT", "8080"),
			LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			Backend:               strings.ToLower(getenvWithDefault("STORE_BACKEND", BackendDropbox)),
			DropboxAppKey:         os.Getenv("DROPBOX_APP_KEY"),
			DropboxAppSecret:      os.Getenv("DROPBOX_APP_SECRET"),
			DropboxRefreshToken:   os.Getenv("DROPBOX_REFRESH_TOKEN"),
			DropboxAPIURL:         getenvWithDefault("DROPBOX_API_URL", "https://api.dropboxapi.com"),
			DropboxContentURL:     getenvWithDefault("DROPBOX_CONTENT_URL", "https://content.dropboxapi.com"),
			GCSBucket:             os.Getenv("GCS_BUCKET"),
			GoogleCredentialsPath: os.Getenv("GOOGLE_CREDENTIALS_PATH"),
			LocalDir:              getenvWithDefault("LOCAL_STORE_DIR", "./data"),
		},
		Paths: PathsConfig{
			Catalog:       getenvWithDefault("CATALOG_PATH", "/mmm/data/price_list.json"),
			StockTable:    getenvWithDefault("STOCK_TABLE_PATH", "/mmm/sales/main_sales.csv"),
			StockCatalog:  getenvWithDefault("STOCK_CATALOG_PATH", "/mmm/sales/price_list.json"),
			SalesLedger:   getenvWithDefault("SALES_LEDGER_PATH", "/mmm/invoice/invoices_log.csv"),
			InvoiceFolder: getenvWithDefault("INVOICE_ROOT", "/mmm/invoice"),
		},
		Shop: ShopConfig{
			Name:                   getenvWithDefault("SHOP_NAME", "M.M. Medicine"),
			Address:                os.Getenv("SHOP_ADDRESS"),
			Registration:           os.Getenv("SHOP_REG"),
			Currency:               getenvWithDefault("SHOP_CURRENCY", "INR"),
			DefaultDiscountPercent: getenvWithDefault("DEFAULT_DISCOUNT_PERCENT", "18"),
			Timezone:               getenvWithDefault("TIMEZONE", "Asia/Kolkata"),
			LogoPath:               os.Getenv("SHOP_LOGO_PATH"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			LedgerRange:     getenvWithDefault("GOOGLE_SHEET_LEDGER_RANGE", "Invoices!A:G"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "medpos"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 21 * * *"),
			Recipient:    os.Getenv("REPORT_RECIPIENT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Store.Backend {
	case BackendDropbox:
		switch {
		case c.Store.DropboxAppKey == "":
			return errors.New("DROPBOX_APP_KEY must be provided")
		case c.Store.DropboxAppSecret == "":
			return errors.New("DROPBOX_APP_SECRET must be provided")
		case c.Store.DropboxRefreshToken == "":
			return errors.New("DROPBOX_REFRESH_TOKEN must be provided")
		}
	case BackendGCS:
		if c.Store.GCSBucket == "" {
			return errors.New("GCS_BUCKET must be provided")
		}
	case BackendLocal:
		if c.Store.LocalDir == "" {
			return errors.New("LOCAL_STORE_DIR must not be empty")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.Store.Backend)
	}

	switch {
	case c.Paths.Catalog == "":
		return errors.New("CATALOG_PATH must not be empty")
	case c.Paths.StockTable == "":
		return errors.New("STOCK_TABLE_PATH must not be empty")
	case c.Paths.StockCatalog == "":
		return errors.New("STOCK_CATALOG_PATH must not be empty")
	case c.Paths.SalesLedger == "":
		return errors.New("SALES_LEDGER_PATH must not be empty")
	case c.Paths.InvoiceFolder == "":
		return errors.New("INVOICE_ROOT must not be empty")
	}

	if c.Shop.Name == "" {
		return errors.New("SHOP_NAME must not be empty")
	}

	if c.Shop.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}

	if c.Shop.LogoPath != "" {
		if _, err := os.Stat(c.Shop.LogoPath); err != nil {
			return fmt.Errorf("SHOP_LOGO_PATH is not readable: %w", err)
		}
	}

	if c.WhatsApp.Enabled() && c.WhatsApp.BaseURL == "" {
		return errors.New("WHATSAPP_BASE_URL must not be empty")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
