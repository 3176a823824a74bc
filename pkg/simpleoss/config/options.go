package config

import (
	"fmt"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithAPIKeySHA256 enables API key auth with the given key hash
func WithAPIKeySHA256(sha string) Option {
	return func(c *ServerConfig) error {
		c.APIKeySHA256 = sha
		return nil
	}
}

// WithDefaultDisk sets the default disk name
func WithDefaultDisk(name string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			return fmt.Errorf("default disk name cannot be empty")
		}
		c.DefaultDisk = name
		return nil
	}
}

// WithDisk adds or replaces a disk by name
func WithDisk(disk DiskConfig) Option {
	return func(c *ServerConfig) error {
		if disk.Name == "" {
			return fmt.Errorf("disk name cannot be empty")
		}
		c.Disks = upsertDisk(c.Disks, disk)
		return nil
	}
}

// WithAliOSSDisk adds an Aliyun OSS disk
// If name is empty, defaults to "oss"
func WithAliOSSDisk(name, endpoint, bucket, accessKeyID, accessKeySecret string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "oss"
		}
		if bucket == "" {
			return fmt.Errorf("OSS bucket cannot be empty")
		}
		if endpoint == "" {
			return fmt.Errorf("OSS endpoint cannot be empty")
		}
		c.Disks = upsertDisk(c.Disks, DiskConfig{
			Name:            name,
			Driver:          DriverAliOSS,
			Endpoint:        endpoint,
			Bucket:          bucket,
			AccessKeyID:     accessKeyID,
			AccessKeySecret: accessKeySecret,
		})
		return nil
	}
}

// WithMemoryDisk adds a memory disk (for testing and local development)
// If name is empty, defaults to "memory"
func WithMemoryDisk(name, bucket string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = DriverMemory
		}
		if bucket == "" {
			bucket = "local"
		}
		c.Disks = upsertDisk(c.Disks, DiskConfig{
			Name:   name,
			Driver: DriverMemory,
			Bucket: bucket,
		})
		return nil
	}
}

// WithDomains sets the CDN and upload base URLs of an existing disk
func WithDomains(name, cdnBaseURL, uploadBaseURL string) Option {
	return func(c *ServerConfig) error {
		for i := range c.Disks {
			if c.Disks[i].Name == name {
				c.Disks[i].CDNBaseURL = cdnBaseURL
				c.Disks[i].UploadBaseURL = uploadBaseURL
				return nil
			}
		}
		return fmt.Errorf("disk '%s' not configured", name)
	}
}
