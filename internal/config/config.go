package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vvka-141/dsload/pkg/dsload"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

const ConfigFileName = "dsload.yaml"

type ConnectionConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password,omitempty"`
	Database       string `yaml:"database"`
	SSLMode        string `yaml:"sslmode,omitempty"`
	AuthMethod     string `yaml:"auth_method,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
}

type TableConfig struct {
	Name       string   `yaml:"name"`
	File       string   `yaml:"file"`
	PrimaryKey []string `yaml:"primary_key,omitempty"`
	Replace    bool     `yaml:"replace,omitempty"`
	Profile    string   `yaml:"profile,omitempty"`
}

type ProjectConfig struct {
	Connection   ConnectionConfig `yaml:"connection"`
	Tables       []TableConfig    `yaml:"tables"`
	StartupDelay string           `yaml:"startup_delay,omitempty"`
	BatchSize    int              `yaml:"batch_size,omitempty"`
}

// Load reads dsload.yaml from sourcePath.
func Load(sourcePath string) (*ProjectConfig, error) {
	configPath := filepath.Join(sourcePath, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// TableSpecs converts the config's table list into specs. An empty list
// means the built-in default set.
func (c *ProjectConfig) TableSpecs() []dsload.TableSpec {
	if c == nil || len(c.Tables) == 0 {
		return dsload.DefaultTables()
	}
	specs := make([]dsload.TableSpec, len(c.Tables))
	for i, t := range c.Tables {
		specs[i] = dsload.TableSpec{
			Name:       t.Name,
			File:       t.File,
			PrimaryKey: t.PrimaryKey,
			Replace:    t.Replace,
			Profile:    t.Profile,
		}
	}
	return specs
}

// envOr returns the named environment variable or fallback when it is
// unset or empty.
func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// ResolveConnection merges connection settings by precedence: the
// non-zero fields of flags win, then DB_* environment variables, then
// the config file, then built-in defaults. fileCfg may be nil.
func ResolveConnection(flags dsload.ConnectionConfig, fileCfg *ProjectConfig) (dsload.ConnectionConfig, error) {
	resolved := dsload.ConnectionConfig{
		Host:     dsload.DefaultHost,
		Port:     dsload.DefaultPort,
		Database: dsload.DefaultDatabase,
		Username: dsload.DefaultUser,
		Password: dsload.DefaultPassword,
	}

	authName := ""
	if fileCfg != nil {
		fc := fileCfg.Connection
		applyString(&resolved.Host, fc.Host)
		applyInt(&resolved.Port, fc.Port)
		applyString(&resolved.Database, fc.Database)
		applyString(&resolved.Username, fc.Username)
		applyString(&resolved.Password, fc.Password)
		applyString(&resolved.SSLMode, fc.SSLMode)
		applyString(&resolved.AWSRegion, fc.AWSRegion)
		applyString(&resolved.GoogleInstance, fc.GoogleInstance)
		applyString(&resolved.AzureTenantID, fc.AzureTenantID)
		applyString(&resolved.AzureClientID, fc.AzureClientID)
		authName = fc.AuthMethod
	}

	resolved.Host = envOr("DB_HOST", resolved.Host)
	resolved.Database = envOr("DB_NAME", resolved.Database)
	resolved.Username = envOr("DB_USER", resolved.Username)
	resolved.Password = envOr("DB_PASSWORD", resolved.Password)
	if portStr := os.Getenv("DB_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return dsload.ConnectionConfig{}, errors.Join(dsload.ErrInvalidConfig,
				errors.New("DB_PORT must be an integer, got "+strconv.Quote(portStr)))
		}
		resolved.Port = port
	}

	applyString(&resolved.Host, flags.Host)
	applyInt(&resolved.Port, flags.Port)
	applyString(&resolved.Database, flags.Database)
	applyString(&resolved.Username, flags.Username)
	applyString(&resolved.Password, flags.Password)
	applyString(&resolved.SSLMode, flags.SSLMode)
	applyString(&resolved.AWSRegion, flags.AWSRegion)
	applyString(&resolved.GoogleInstance, flags.GoogleInstance)
	applyString(&resolved.AzureTenantID, flags.AzureTenantID)
	applyString(&resolved.AzureClientID, flags.AzureClientID)
	applyString(&resolved.AzureClientSecret, flags.AzureClientSecret)
	applyString(&resolved.AppName, flags.AppName)
	if flags.ConnectTimeout > 0 {
		resolved.ConnectTimeout = flags.ConnectTimeout
	}

	if flags.AuthMethod != dsload.AuthMethodStandard {
		resolved.AuthMethod = flags.AuthMethod
	} else if authName != "" {
		method, err := dsload.ParseAuthMethod(authName)
		if err != nil {
			return dsload.ConnectionConfig{}, err
		}
		resolved.AuthMethod = method
	}

	return resolved, nil
}

// ResolvePipeline builds the pipeline configuration from the config
// file, falling back to defaults. fileCfg may be nil.
func ResolvePipeline(fileCfg *ProjectConfig) (dsload.PipelineConfig, error) {
	cfg := dsload.PipelineConfig{
		Tables:       fileCfg.TableSpecs(),
		StartupDelay: dsload.DefaultStartupDelay,
		BatchSize:    dsload.DefaultBatchSize,
	}

	if fileCfg != nil {
		if fileCfg.StartupDelay != "" {
			delay, err := time.ParseDuration(fileCfg.StartupDelay)
			if err != nil {
				return dsload.PipelineConfig{}, fmt.Errorf("invalid startup_delay in %s: %w", ConfigFileName, err)
			}
			cfg.StartupDelay = delay
		}
		if fileCfg.BatchSize > 0 {
			cfg.BatchSize = fileCfg.BatchSize
		}
	}

	if err := cfg.Validate(); err != nil {
		return dsload.PipelineConfig{}, err
	}
	return cfg, nil
}

func applyString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func applyInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
