// Package config loads disk configuration and builds a simpleoss.Registry from it.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tendant/simple-oss/pkg/simpleoss"
	aliyunstorage "github.com/tendant/simple-oss/pkg/simpleoss/storage/aliyun"
	memorystorage "github.com/tendant/simple-oss/pkg/simpleoss/storage/memory"
	s3storage "github.com/tendant/simple-oss/pkg/simpleoss/storage/s3"
)

// Supported disk drivers.
const (
	DriverAliOSS = "alioss"
	DriverS3     = "s3"
	DriverMemory = "memory"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:        "8080",
		Environment: "development",
		DefaultDisk: simpleoss.DefaultDisk,
		Disks: []DiskConfig{
			{
				Name:   simpleoss.DefaultDisk,
				Driver: DriverMemory,
				Bucket: "local",
			},
		},
	}
}

// ServerConfig represents the configuration of the disks and the HTTP server
type ServerConfig struct {
	Port        string `yaml:"port" validate:"required"`
	Environment string `yaml:"environment" validate:"omitempty,oneof=development production testing"`

	// APIKeySHA256 enables API key auth on the HTTP actions when set
	APIKeySHA256 string `yaml:"api_key_sha256"`

	DefaultDisk string       `yaml:"default_disk" validate:"required"`
	Disks       []DiskConfig `yaml:"disks" validate:"min=1,dive"`
}

// DiskConfig represents one named OSS disk
type DiskConfig struct {
	Name   string `yaml:"name" validate:"required"`
	Driver string `yaml:"driver" validate:"required,oneof=alioss s3 memory"`

	AccessKeyID     string `yaml:"access_key_id" validate:"required_if=Driver alioss"`
	AccessKeySecret string `yaml:"access_key_secret" validate:"required_if=Driver alioss"`
	Endpoint        string `yaml:"endpoint" validate:"required_if=Driver alioss"`
	Bucket          string `yaml:"bucket" validate:"required"`
	RegionID        string `yaml:"region_id"`
	IsCName         bool   `yaml:"is_cname"`
	SecurityToken   string `yaml:"security_token"`
	RequestProxy    string `yaml:"request_proxy" validate:"omitempty,url"`
	Prefix          string `yaml:"prefix"`
	ACL             string `yaml:"acl" validate:"omitempty,oneof=private public-read public-read-write default"`
	CDNBaseURL      string `yaml:"cdn_base_url"`
	UploadBaseURL   string `yaml:"upload_base_url"`
	URLTTLSeconds   int    `yaml:"url_ttl_seconds" validate:"gte=0"`

	// BaseURL makes a memory disk sign path-style URLs against a server
	// that serves the disk, e.g. "http://localhost:8080/oss".
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`

	// S3 driver only
	EnableSSE    bool   `yaml:"enable_sse"`
	SSEAlgorithm string `yaml:"sse_algorithm" validate:"omitempty,oneof=AES256 aws:kms"`
	SSEKMSKeyID  string `yaml:"sse_kms_key_id"`
	CreateBucket bool   `yaml:"create_bucket"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report yaml names in errors
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if err := getValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		messages := make([]string, 0, len(verrs))
		for _, e := range verrs {
			messages = append(messages, fmt.Sprintf("%s failed on %s", e.Namespace(), e.Tag()))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(messages, "; "))
	}

	seen := make(map[string]bool, len(c.Disks))
	for _, disk := range c.Disks {
		if seen[disk.Name] {
			return fmt.Errorf("duplicate disk name '%s'", disk.Name)
		}
		seen[disk.Name] = true
	}
	if !seen[c.DefaultDisk] {
		return fmt.Errorf("default disk '%s' not found in configured disks", c.DefaultDisk)
	}

	return nil
}

// Disk returns the configuration of the named disk.
func (c *ServerConfig) Disk(name string) (DiskConfig, bool) {
	for _, disk := range c.Disks {
		if disk.Name == name {
			return disk, true
		}
	}
	return DiskConfig{}, false
}

// AdapterConfig converts the disk configuration into an adapter Config.
func (d DiskConfig) AdapterConfig() simpleoss.Config {
	return simpleoss.Config{
		AccessKeyID:     d.AccessKeyID,
		AccessKeySecret: d.AccessKeySecret,
		Endpoint:        d.Endpoint,
		Bucket:          d.Bucket,
		RegionID:        d.RegionID,
		IsCName:         d.IsCName,
		SecurityToken:   d.SecurityToken,
		RequestProxy:    d.RequestProxy,
		Prefix:          d.Prefix,
		ACL:             simpleoss.ACL(d.ACL),
		CDNBaseURL:      d.CDNBaseURL,
		UploadBaseURL:   d.UploadBaseURL,
	}
}

// BuildRegistry creates an adapter for every disk and registers it under its name.
// The options are applied to every adapter.
func (c *ServerConfig) BuildRegistry(opts ...simpleoss.Option) (*simpleoss.Registry, error) {
	registry := simpleoss.NewRegistry(c.DefaultDisk)
	for _, disk := range c.Disks {
		adapter, err := disk.BuildAdapter(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to build disk %s: %w", disk.Name, err)
		}
		registry.Register(disk.Name, adapter)
	}
	return registry, nil
}

// BuildAdapter creates the object store for the disk driver and wraps it in an Adapter.
func (d DiskConfig) BuildAdapter(opts ...simpleoss.Option) (*simpleoss.Adapter, error) {
	store, factory, err := d.buildStore()
	if err != nil {
		return nil, err
	}

	options := []simpleoss.Option{simpleoss.WithStoreFactory(factory)}
	if d.URLTTLSeconds > 0 {
		options = append(options, simpleoss.WithDefaultTTL(time.Duration(d.URLTTLSeconds)*time.Second))
	}
	options = append(options, opts...)

	return simpleoss.New(d.AdapterConfig(), store, options...)
}

// buildStore creates an ObjectStore based on the disk driver
func (d DiskConfig) buildStore() (simpleoss.ObjectStore, simpleoss.StoreFactory, error) {
	switch d.Driver {
	case DriverAliOSS:
		store, err := aliyunstorage.New(aliyunstorage.Config{
			Endpoint:        d.Endpoint,
			AccessKeyID:     d.AccessKeyID,
			AccessKeySecret: d.AccessKeySecret,
			SecurityToken:   d.SecurityToken,
			IsCName:         d.IsCName,
			RequestProxy:    d.RequestProxy,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, aliyunstorage.NewFromConfig, nil

	case DriverS3:
		endpoint := d.Endpoint
		if endpoint != "" && !strings.Contains(endpoint, "://") {
			endpoint = "https://" + endpoint
		}
		s3Config := s3storage.Config{
			Region:          d.AdapterConfig().Region(),
			AccessKeyID:     d.AccessKeyID,
			SecretAccessKey: d.AccessKeySecret,
			SessionToken:    d.SecurityToken,
			Endpoint:        endpoint,
			UsePathStyle:    endpoint != "",
			EnableSSE:       d.EnableSSE,
			SSEAlgorithm:    d.SSEAlgorithm,
			SSEKMSKeyID:     d.SSEKMSKeyID,
		}
		if d.CreateBucket {
			s3Config.CreateBucketIfNotExist = d.Bucket
		}
		store, err := s3storage.New(s3Config)
		if err != nil {
			return nil, nil, err
		}
		return store, s3storage.NewFromConfig, nil

	case DriverMemory:
		store := memorystorage.New(memorystorage.Config{
			Endpoint:        d.Endpoint,
			AccessKeyID:     d.AccessKeyID,
			AccessKeySecret: d.AccessKeySecret,
			SecurityToken:   d.SecurityToken,
			BaseURL:         d.BaseURL,
		})
		return store, memorystorage.NewFromConfig, nil

	default:
		return nil, nil, fmt.Errorf("unsupported disk driver: %s", d.Driver)
	}
}

func upsertDisk(disks []DiskConfig, disk DiskConfig) []DiskConfig {
	for i := range disks {
		if disks[i].Name == disk.Name {
			disks[i] = disk
			return disks
		}
	}
	return append(disks, disk)
}
