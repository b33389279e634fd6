// Package config loads the server configuration from an optional YAML file
// and RANGECACHE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-viper/mapstructure/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const envPrefix = "RANGECACHE"

const (
	IndexFile  = "file"
	IndexMongo = "mongo"
)

// ByteSize is a number of bytes, which can be written as "10GiB" or "500 MB"
// as well as a plain number.
type ByteSize uint64

func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

type Config struct {
	CacheDir      string   `mapstructure:"cache_dir"`
	MaxSize       ByteSize `mapstructure:"max_size"`
	Listen        string   `mapstructure:"listen"`
	MetricsListen string   `mapstructure:"metrics_listen"`
	LogLevel      string   `mapstructure:"log_level"`

	// Index is where range indexes are kept: "file" for sidecars in the cache
	// dir, or "mongo".
	Index string `mapstructure:"index"`

	// SizeCache is how many object sizes to remember. Zero disables it.
	SizeCache int `mapstructure:"size_cache"`

	S3    S3Config    `mapstructure:"s3"`
	Mongo MongoConfig `mapstructure:"mongo"`
}

type S3Config struct {
	Bucket string `mapstructure:"bucket"`
}

type MongoConfig struct {
	URL string `mapstructure:"url"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("cache_dir", "./cache")
	v.SetDefault("max_size", "10GiB")
	v.SetDefault("listen", ":8080")
	v.SetDefault("metrics_listen", ":9090")
	v.SetDefault("log_level", "info")
	v.SetDefault("index", IndexFile)
	v.SetDefault("size_cache", 10000)
	v.SetDefault("s3.bucket", "")
	v.SetDefault("mongo.url", "")
}

// Load reads the config file at path (if path is not empty), then applies
// environment overrides like RANGECACHE_MAX_SIZE or RANGECACHE_S3_BUCKET.
func Load(path string) (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if errors.As(err, &nf) || errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			return nil, fmt.Errorf("ReadInConfig: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(byteSizeDecodeHook())); err != nil {
		return nil, fmt.Errorf("Unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.CacheDir == "" {
		return errors.New("cache_dir is required")
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	switch c.Index {
	case IndexFile:
	case IndexMongo:
		if c.Mongo.URL == "" {
			return errors.New("mongo.url is required when index is mongo")
		}
	default:
		return fmt.Errorf("index must be %q or %q, not %q", IndexFile, IndexMongo, c.Index)
	}

	if c.SizeCache < 0 {
		return fmt.Errorf("size_cache must not be negative: %d", c.SizeCache)
	}

	return nil
}

func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			n, err := humanize.ParseBytes(v)
			if err != nil {
				return nil, fmt.Errorf("invalid size %q: %w", v, err)
			}
			return ByteSize(n), nil
		case int:
			if v < 0 {
				return nil, fmt.Errorf("invalid size %d", v)
			}
			return ByteSize(v), nil
		case int64:
			if v < 0 {
				return nil, fmt.Errorf("invalid size %d", v)
			}
			return ByteSize(v), nil
		case uint64:
			return ByteSize(v), nil
		case float64:
			if v < 0 {
				return nil, fmt.Errorf("invalid size %v", v)
			}
			return ByteSize(v), nil
		}

		return data, nil
	}
}
