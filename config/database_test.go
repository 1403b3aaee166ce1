package config

import (
	"testing"

	"gorm.io/gorm/logger"
)

func TestOpenDialector(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres"} {
		d, err := openDialector(AppConfig{DBDriver: driver, DBHost: "db", DBPort: "1", DBUser: "u", DBName: "n"})
		if err != nil {
			t.Fatalf("%s: %v", driver, err)
		}
		if d.Name() != driver {
			t.Errorf("dialector name = %s, want %s", d.Name(), driver)
		}
	}
	if _, err := openDialector(AppConfig{DBDriver: "sqlite"}); err == nil {
		t.Error("sqlite accepted")
	}
}

func TestToGormLogLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"debug":  logger.Info,
		"info":   logger.Warn,
		"":       logger.Warn,
		"error":  logger.Error,
		"silent": logger.Silent,
	}
	for in, want := range tests {
		if got := toGormLogLevel(in); got != want {
			t.Errorf("toGormLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
