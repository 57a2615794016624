package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all server configuration
type Config struct {
	// Server configuration
	Port        string
	CORSOrigins string // comma separated; empty disables CORS

	// Database configuration
	DBType            string // mysql, postgres, sqlite, sqlite3, sqlserver
	DBHost            string
	DBPort            string
	DBDatabase        string
	DBUser            string
	DBPassword        string
	DBConnectionLimit int

	// Azure AD configuration
	AzureTenantID string
	AzureClientID string
	JWKSURL       string

	// Photo blob storage
	BlobDriver     string // fs, s3
	UploadDir      string
	UploadURLBase  string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3PathStyle    bool
	MaxUploadBytes int
}

// ClientConfig holds configuration for API consumers (pisctl and embedding front ends)
type ClientConfig struct {
	APIURL             string
	AccessToken        string
	PrefsDB            string
	SessionTimeoutMins int
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are not an error when no explicit path is given.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		return godotenv.Load()
	}
	return godotenv.Load(paths...)
}

// Load loads server configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "3000"),
		CORSOrigins:       getEnv("CORS_ALLOW_ORIGINS", ""),
		DBType:            getEnv("DB_TYPE", "sqlite"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBDatabase:        getEnv("DB_DATABASE", "pis.db"),
		DBUser:            getEnv("DB_USER", ""),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBConnectionLimit: getEnvAsInt("DB_CONNECTION_LIMIT", 5),
		AzureTenantID:     getEnv("AZURE_AD_TENANT_ID", ""),
		AzureClientID:     getEnv("AZURE_AD_CLIENT_ID", ""),
		JWKSURL:           getEnv("AUTH_JWKS_URL", ""),
		BlobDriver:        getEnv("BLOB_DRIVER", "fs"),
		UploadDir:         getEnv("UPLOAD_DIR", "static/uploads"),
		UploadURLBase:     getEnv("UPLOAD_URL_BASE", "/uploads"),
		S3Bucket:          getEnv("BLOB_S3_BUCKET", ""),
		S3Region:          getEnv("BLOB_S3_REGION", "us-east-1"),
		S3Endpoint:        getEnv("BLOB_S3_ENDPOINT", ""),
		S3PathStyle:       getEnvAsBool("BLOB_S3_PATH_STYLE", false),
		MaxUploadBytes:    getEnvAsInt("MAX_UPLOAD_BYTES", 20*1024*1024),
	}

	// Validate required fields
	if cfg.AzureTenantID == "" {
		return nil, fmt.Errorf("AZURE_AD_TENANT_ID is required")
	}
	if cfg.AzureClientID == "" {
		return nil, fmt.Errorf("AZURE_AD_CLIENT_ID is required")
	}
	if cfg.DBType != "sqlite" && cfg.DBType != "sqlite3" && cfg.DBUser == "" {
		return nil, fmt.Errorf("DB_USER is required for %s", cfg.DBType)
	}
	if cfg.BlobDriver == "s3" && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("BLOB_S3_BUCKET is required for the s3 blob driver")
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = fmt.Sprintf("https://login.microsoftonline.com/%s/discovery/v2.0/keys", cfg.AzureTenantID)
	}

	return cfg, nil
}

// Issuer is the token issuer Azure AD stamps on access tokens for the tenant
func (c *Config) Issuer() string {
	return fmt.Sprintf("https://sts.windows.net/%s/", c.AzureTenantID)
}

// Audience is the application id URI access tokens are minted for
func (c *Config) Audience() string {
	return fmt.Sprintf("api://%s", c.AzureClientID)
}

// LoadClient loads API consumer configuration from environment variables
func LoadClient() (*ClientConfig, error) {
	cfg := &ClientConfig{
		APIURL:             strings.TrimSuffix(getEnv("PIS_API_URL", "http://localhost:3000/api"), "/"),
		AccessToken:        getEnv("PIS_ACCESS_TOKEN", ""),
		PrefsDB:            getEnv("PIS_PREFS_DB", "pis-prefs.db"),
		SessionTimeoutMins: getEnvAsInt("PIS_SESSION_TIMEOUT_MINUTES", 60),
	}

	if cfg.APIURL == "" {
		return nil, fmt.Errorf("PIS_API_URL is required")
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
