package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	Port         string       `yaml:"port"`
	Environment  string       `yaml:"environment"`
	APIKeySHA256 string       `yaml:"api_key_sha256"`
	DefaultDisk  string       `yaml:"default_disk"`
	Disks        []DiskConfig `yaml:"disks"`
}

// WithFile merges a YAML configuration file. Disks replace configured disks
// of the same name; empty scalar fields keep their current value.
//
//	port: "8080"
//	default_disk: oss
//	disks:
//	  - name: oss
//	    driver: alioss
//	    endpoint: oss-cn-hangzhou.aliyuncs.com
//	    bucket: my-bucket
//	    access_key_id: ...
//	    access_key_secret: ...
//	    cdn_base_url: https://cdn.example.com
func WithFile(path string) Option {
	return func(c *ServerConfig) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}

		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", path, err)
		}

		if fc.Port != "" {
			c.Port = fc.Port
		}
		if fc.Environment != "" {
			c.Environment = fc.Environment
		}
		if fc.APIKeySHA256 != "" {
			c.APIKeySHA256 = fc.APIKeySHA256
		}
		if fc.DefaultDisk != "" {
			c.DefaultDisk = fc.DefaultDisk
		}
		for _, disk := range fc.Disks {
			if disk.Name == "" {
				return fmt.Errorf("config file %s: disk without a name", path)
			}
			c.Disks = upsertDisk(c.Disks, disk)
		}
		return nil
	}
}
