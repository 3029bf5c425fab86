package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d", cfg.Server.Port)
	}
	if cfg.Database.Name != "pulsecrm" {
		t.Errorf("database name = %s", cfg.Database.Name)
	}
	if cfg.Automation.QueueSize <= 0 || cfg.Automation.Workers <= 0 {
		t.Errorf("automation defaults = %+v", cfg.Automation)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("log defaults = %+v", cfg.Log)
	}
	if cfg.SMTP.Enabled {
		t.Error("smtp enabled by default")
	}
	if cfg.Monitoring.Tracing.Enabled {
		t.Error("tracing enabled by default")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("server.port", 9999)
	viper.Set("jwt.secret", "from-viper")
	viper.Set("database.host", "db.internal")
	viper.Set("automation.queue_size", 16)

	cfg := Load()
	if cfg.Server.Port != 9999 {
		t.Errorf("server port = %d, want viper override", cfg.Server.Port)
	}
	if cfg.JWT.Secret != "from-viper" {
		t.Errorf("jwt secret = %s", cfg.JWT.Secret)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("database host = %s", cfg.Database.Host)
	}
	if cfg.Automation.QueueSize != 16 {
		t.Errorf("queue size = %d", cfg.Automation.QueueSize)
	}
	// untouched keys keep their defaults
	if cfg.Database.Port != 5432 {
		t.Errorf("database port = %d", cfg.Database.Port)
	}
}
