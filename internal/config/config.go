// Package config loads the CLI configuration.
// Priority: defaults < config file < env < flags.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/thalesfsp/configurer/util"
	"github.com/thalesfsp/customerror"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load. They match the `env` tags below.
const (
	EnvAddresses = "ELASTICSEARCH_ADDRESSES"
	EnvAPIKey    = "ELASTICSEARCH_API_KEY"
	EnvCloudID   = "ELASTICSEARCH_CLOUD_ID"
	EnvUsername  = "ELASTICSEARCH_USERNAME"
	EnvPassword  = "ELASTICSEARCH_PASSWORD"
	EnvIndex     = "DICTLOADER_INDEX"
	EnvLogLevel  = "DICTLOADER_LOG_LEVEL"
)

// Config holds all dictloader configuration.
type Config struct {
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Index         IndexConfig         `yaml:"index"`
	Log           LogConfig           `yaml:"log"`
}

// ElasticsearchConfig is passed through to the Elasticsearch client.
//
//nolint:lll
type ElasticsearchConfig struct {
	Addresses  []string `default:"http://localhost:9200" env:"ELASTICSEARCH_ADDRESSES" yaml:"addresses"`
	APIKey     string   `env:"ELASTICSEARCH_API_KEY"     yaml:"api_key"`
	CloudID    string   `env:"ELASTICSEARCH_CLOUD_ID"    yaml:"cloud_id"`
	Username   string   `env:"ELASTICSEARCH_USERNAME"    yaml:"username"`
	Password   string   `env:"ELASTICSEARCH_PASSWORD"    yaml:"password"`
	MaxRetries int      `default:"3"                     yaml:"max_retries"`
}

// IndexConfig controls where and how documents are written.
//
//nolint:lll
type IndexConfig struct {
	Name            string        `default:"entity_data"     env:"DICTLOADER_INDEX" yaml:"name"`
	DocType         string        `default:"dictionary_data" yaml:"doc_type"`
	MaxBatchSize    int           `default:"1000"            yaml:"max_batch_size"`
	Concurrency     int           `default:"1"               yaml:"concurrency"`
	Pipeline        string        `yaml:"pipeline"`
	Routing         string        `yaml:"routing"`
	RefreshPolicy   string        `default:"false"           yaml:"refresh_policy"`
	RefreshAfterRun bool          `yaml:"refresh_after_run"`
	Timeout         time.Duration `default:"30s"             yaml:"timeout"`
	WatchDebounce   time.Duration `default:"500ms"           yaml:"watch_debounce"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `default:"info" env:"DICTLOADER_LOG_LEVEL" yaml:"level"`
	Format string `default:"text" yaml:"format"`
}

// Default returns the configuration built from the `default` tags.
func Default() (*Config, error) {
	cfg := &Config{}

	if err := util.SetDefault(cfg); err != nil {
		return nil, customerror.NewFailedToError("set config defaults", customerror.WithError(err))
	}

	return cfg, nil
}

// Load returns the defaults overlaid with the YAML file at path, if path
// isn't empty, and then with the environment (`env` tags).
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, customerror.NewFailedToError("read config file",
				customerror.WithError(err),
				customerror.WithField("path", path),
			)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, customerror.NewFailedToError("parse config file",
				customerror.WithError(err),
				customerror.WithField("path", path),
			)
		}
	}

	if err := util.SetEnv(cfg); err != nil {
		return nil, customerror.NewFailedToError("load config from env", customerror.WithError(err))
	}

	cfg.Elasticsearch.Addresses = cleanAddresses(cfg.Elasticsearch.Addresses)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// cleanAddresses trims the addresses and drops the empty ones, as a comma
// separated env value may hold spaces.
func cleanAddresses(in []string) []string {
	addresses := make([]string, 0, len(in))

	for _, a := range in {
		if a = strings.TrimSpace(a); a != "" {
			addresses = append(addresses, a)
		}
	}

	return addresses
}

// Validate checks the settings the client and the loader can't default.
func (c *Config) Validate() error {
	if len(c.Elasticsearch.Addresses) == 0 && c.Elasticsearch.CloudID == "" {
		return customerror.NewRequiredError("elasticsearch addresses or cloud id")
	}

	if c.Index.Name == "" {
		return customerror.NewRequiredError("index name")
	}

	if c.Index.MaxBatchSize <= 0 {
		return customerror.NewInvalidError("max batch size",
			customerror.WithError(errors.New("must be greater than zero")),
		)
	}

	return nil
}

// ElasticsearchClientConfig returns the go-elasticsearch client config.
func (c *Config) ElasticsearchClientConfig() elasticsearch.Config {
	esConfig := elasticsearch.Config{
		APIKey:     c.Elasticsearch.APIKey,
		CloudID:    c.Elasticsearch.CloudID,
		Username:   c.Elasticsearch.Username,
		Password:   c.Elasticsearch.Password,
		MaxRetries: c.Elasticsearch.MaxRetries,
	}

	// Addresses and CloudID are mutually exclusive.
	if c.Elasticsearch.CloudID == "" {
		esConfig.Addresses = c.Elasticsearch.Addresses
	}

	return esConfig
}
