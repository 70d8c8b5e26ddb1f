package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ArchiveConfig holds session-archive backend settings.
type ArchiveConfig struct {
	Backend   string `json:"backend" mapstructure:"backend"`
	OutputDir string `json:"outputDir" mapstructure:"outputDir"`
}

// Load reads configuration from the JSON config file and sets default
// values. configDir is the directory containing the config file; when no
// file is present the defaults stand.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./tacmaplogs")

	viper.SetDefault("session.name", "Session")
	viper.SetDefault("chat.historySize", 200)

	viper.SetDefault("listen.host", "0.0.0.0")
	viper.SetDefault("listen.port", 3000)

	viper.SetDefault("archive.backend", "none")
	viper.SetDefault("archive.outputDir", "./tacmaplogs")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "tacmap")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "tacmap-metrics")
	viper.SetDefault("influx.bucket", "session_data")

	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.url", "http://localhost:5000")
	viper.SetDefault("api.key", "")
	viper.SetDefault("api.tag", "")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("monitor.interval", "30s")

	viper.SetConfigName("tacmap.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// Archive returns the archive backend settings.
func Archive() ArchiveConfig {
	return ArchiveConfig{
		Backend:   viper.GetString("archive.backend"),
		OutputDir: viper.GetString("archive.outputDir"),
	}
}
