package testsupport

import "testing"

func TestLoadDatabaseConfigsFromEnv(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "localhost")
	t.Setenv("POSTGRES_USER", "user")
	t.Setenv("POSTGRES_PASSWORD", "pass")
	t.Setenv("POSTGRES_DB", "db")
	t.Setenv("POSTGRES_PORT", "5543")
	t.Setenv("POSTGRES_SSL_MODE", "disable")

	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")

	cfg := LoadDatabaseConfigsFromEnv(t, "POSTGRES_HOST", "REDIS_HOST")

	if cfg.Postgres.Host != "localhost" || cfg.Postgres.Port != 5543 {
		t.Fatalf("unexpected postgres config %+v", cfg.Postgres)
	}

	if cfg.Redis.Host != "redis" || cfg.Redis.Port != 6380 || cfg.Redis.DB != 2 {
		t.Fatalf("unexpected redis config %+v", cfg.Redis)
	}
}

func TestLoadDatabaseConfigsFromEnvDefaults(t *testing.T) {
	t.Setenv("POSTGRES_PORT", "")
	t.Setenv("REDIS_PORT", "not-a-number")

	cfg := LoadDatabaseConfigsFromEnv(t)

	if cfg.Postgres.Port != 5432 || cfg.Postgres.SSLMode != "disable" {
		t.Fatalf("unexpected postgres defaults %+v", cfg.Postgres)
	}
	if cfg.Redis.Port != 6379 {
		t.Fatalf("unexpected redis default port %d", cfg.Redis.Port)
	}
}
