package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type envConfig struct {
	Port         string `env:"PORT"`
	Environment  string `env:"ENVIRONMENT"`
	APIKeySHA256 string `env:"API_KEY_SHA256"`
	DefaultDisk  string `env:"ALIOSS_DEFAULT_DISK"`
	Disk         envDisk
}

type envDisk struct {
	Name            string `env:"ALIOSS_DISK" env-default:"oss"`
	Driver          string `env:"ALIOSS_DRIVER" env-default:"alioss"`
	AccessKeyID     string `env:"ALIOSS_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"ALIOSS_ACCESS_KEY_SECRET"`
	Endpoint        string `env:"ALIOSS_ENDPOINT"`
	Bucket          string `env:"ALIOSS_BUCKET"`
	RegionID        string `env:"ALIOSS_REGION_ID"`
	IsCName         bool   `env:"ALIOSS_IS_CNAME" env-default:"false"`
	SecurityToken   string `env:"ALIOSS_SECURITY_TOKEN"`
	RequestProxy    string `env:"ALIOSS_REQUEST_PROXY"`
	Prefix          string `env:"ALIOSS_PREFIX"`
	ACL             string `env:"ALIOSS_ACL"`
	CDNBaseURL      string `env:"ALIOSS_CDN_BASE_URL"`
	UploadBaseURL   string `env:"ALIOSS_UPLOAD_BASE_URL"`
	URLTTLSeconds   int    `env:"ALIOSS_URL_TTL_SECONDS" env-default:"0"`
	BaseURL         string `env:"ALIOSS_BASE_URL"`
}

// WithEnv applies environment variable overrides.
//
// Server:
//
//	PORT, ENVIRONMENT, API_KEY_SHA256
//
// Disk (added or replaced only when ALIOSS_BUCKET is set):
//
//	ALIOSS_DISK (default "oss"), ALIOSS_DRIVER (default "alioss"),
//	ALIOSS_ACCESS_KEY_ID, ALIOSS_ACCESS_KEY_SECRET, ALIOSS_ENDPOINT,
//	ALIOSS_BUCKET, ALIOSS_REGION_ID, ALIOSS_IS_CNAME, ALIOSS_SECURITY_TOKEN,
//	ALIOSS_REQUEST_PROXY, ALIOSS_PREFIX, ALIOSS_ACL, ALIOSS_CDN_BASE_URL,
//	ALIOSS_UPLOAD_BASE_URL, ALIOSS_URL_TTL_SECONDS, ALIOSS_BASE_URL
//
// ALIOSS_DEFAULT_DISK selects the default disk.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env envConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}

		if env.Port != "" {
			c.Port = env.Port
		}
		if env.Environment != "" {
			c.Environment = env.Environment
		}
		if env.APIKeySHA256 != "" {
			c.APIKeySHA256 = env.APIKeySHA256
		}

		if d := env.Disk; d.Bucket != "" {
			c.Disks = upsertDisk(c.Disks, DiskConfig{
				Name:            d.Name,
				Driver:          d.Driver,
				AccessKeyID:     d.AccessKeyID,
				AccessKeySecret: d.AccessKeySecret,
				Endpoint:        d.Endpoint,
				Bucket:          d.Bucket,
				RegionID:        d.RegionID,
				IsCName:         d.IsCName,
				SecurityToken:   d.SecurityToken,
				RequestProxy:    d.RequestProxy,
				Prefix:          d.Prefix,
				ACL:             d.ACL,
				CDNBaseURL:      d.CDNBaseURL,
				UploadBaseURL:   d.UploadBaseURL,
				URLTTLSeconds:   d.URLTTLSeconds,
				BaseURL:         d.BaseURL,
			})
		}

		if env.DefaultDisk != "" {
			c.DefaultDisk = env.DefaultDisk
		}
		return nil
	}
}

// WithDotEnv loads .env files into the process environment. Variables that
// are already set win. Without arguments ./.env is loaded if it exists.
// Apply it before WithEnv.
func WithDotEnv(files ...string) Option {
	return func(c *ServerConfig) error {
		if len(files) == 0 {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to load .env: %w", err)
			}
			return nil
		}
		if err := godotenv.Load(files...); err != nil {
			return fmt.Errorf("failed to load env files: %w", err)
		}
		return nil
	}
}
