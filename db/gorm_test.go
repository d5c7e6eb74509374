package db

import (
	"strings"
	"testing"

	"Musio/config"
)

func TestDSN(t *testing.T) {
	cfg := &config.Config{
		DBUser:     "musio",
		DBPassword: "p@ss",
		DBHost:     "db.local",
		DBPort:     "3307",
		DBName:     "catalog",
	}
	dsn := DSN(cfg)
	for _, want := range []string{"musio:p@ss@tcp(db.local:3307)/catalog", "parseTime=true", "charset=utf8mb4"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("DSN() = %q, missing %q", dsn, want)
		}
	}
}
