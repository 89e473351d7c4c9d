package db

import (
	"testing"
	"time"
)

func TestDefaultConnectionConfig(t *testing.T) {
	cfg := DefaultConnectionConfig()

	if cfg.MaxOpenConns != 25 {
		t.Errorf("expected MaxOpenConns 25, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns != 10 {
		t.Errorf("expected MaxIdleConns 10, got %d", cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime != time.Hour {
		t.Errorf("expected ConnMaxLifetime 1h, got %v", cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime != 30*time.Minute {
		t.Errorf("expected ConnMaxIdleTime 30m, got %v", cfg.ConnMaxIdleTime)
	}
}

func TestLoadConnectionConfig_FromEnv(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "50")
	t.Setenv("DB_MAX_IDLE_CONNS", "20")
	t.Setenv("DB_CONN_MAX_LIFETIME", "2h")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "15m")

	cfg := loadConnectionConfig()

	if cfg.MaxOpenConns != 50 {
		t.Errorf("expected MaxOpenConns 50, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns != 20 {
		t.Errorf("expected MaxIdleConns 20, got %d", cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime != 2*time.Hour {
		t.Errorf("expected ConnMaxLifetime 2h, got %v", cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime != 15*time.Minute {
		t.Errorf("expected ConnMaxIdleTime 15m, got %v", cfg.ConnMaxIdleTime)
	}
}

func TestLoadConnectionConfig_InvalidValuesKeepDefaults(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")
	t.Setenv("DB_MAX_IDLE_CONNS", "-3")
	t.Setenv("DB_CONN_MAX_LIFETIME", "soon")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "-5m")

	cfg := loadConnectionConfig()
	defaults := DefaultConnectionConfig()

	if cfg != defaults {
		t.Errorf("expected defaults %+v, got %+v", defaults, cfg)
	}
}

func TestLoadConnectionConfig_PartialOverride(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "40")

	cfg := loadConnectionConfig()

	if cfg.MaxOpenConns != 40 {
		t.Errorf("expected MaxOpenConns 40, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns != 10 {
		t.Errorf("expected untouched MaxIdleConns 10, got %d", cfg.MaxIdleConns)
	}
}
