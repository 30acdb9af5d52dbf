package config

import (
	"os"
	"testing"
	"time"
)

func TestRecoveryConfig_Defaults(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!!")
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Recovery.RequestTTL != 72*time.Hour {
		t.Errorf("RequestTTL: got %v, want %v", cfg.Recovery.RequestTTL, 72*time.Hour)
	}
	if cfg.Recovery.MaxAttempts != 3 {
		t.Errorf("MaxAttempts: got %d, want 3", cfg.Recovery.MaxAttempts)
	}
	if cfg.Recovery.MaxPendingPerUser != 3 {
		t.Errorf("MaxPendingPerUser: got %d, want 3", cfg.Recovery.MaxPendingPerUser)
	}
	if cfg.Recovery.RateLimitWindow != 24*time.Hour {
		t.Errorf("RateLimitWindow: got %v, want %v", cfg.Recovery.RateLimitWindow, 24*time.Hour)
	}
	if cfg.Recovery.RateLimitMax != 3 {
		t.Errorf("RateLimitMax: got %d, want 3", cfg.Recovery.RateLimitMax)
	}
}

func TestRecoveryConfig_CustomValues(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!!")
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("EMAIL_RECOVERY_REQUEST_TTL", "24h")
	os.Setenv("EMAIL_RECOVERY_MAX_ATTEMPTS", "5")
	os.Setenv("EMAIL_RECOVERY_RATE_WINDOW", "1h")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Recovery.RequestTTL != 24*time.Hour {
		t.Errorf("RequestTTL: got %v, want %v", cfg.Recovery.RequestTTL, 24*time.Hour)
	}
	if cfg.Recovery.MaxAttempts != 5 {
		t.Errorf("MaxAttempts: got %d, want 5", cfg.Recovery.MaxAttempts)
	}
	if cfg.Recovery.RateLimitWindow != time.Hour {
		t.Errorf("RateLimitWindow: got %v, want %v", cfg.Recovery.RateLimitWindow, time.Hour)
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Error("Load() = nil, want error when JWT_SECRET is missing")
	}
}

func TestLoad_RequiresDBPassword(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!!")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Error("Load() = nil, want error when DB_PASSWORD is missing")
	}
}

func TestLoad_RejectsShortJWTSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", "short")
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Error("Load() = nil, want error for short JWT_SECRET")
	}
}

func TestLoad_ProductionRequiresAdminAPIKey(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!!")
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("ENV", "production")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Error("Load() = nil, want error when ADMIN_API_KEY missing in production")
	}

	os.Setenv("ADMIN_API_KEY", "operational-key")
	if _, err := Load(); err != nil {
		t.Errorf("Load() = %v, want nil with ADMIN_API_KEY set", err)
	}
}

func TestLoad_TrustedProxies(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!!")
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 172.16.0.0/12")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if len(cfg.Server.TrustedProxies) != 2 {
		t.Fatalf("TrustedProxies: got %d entries, want 2", len(cfg.Server.TrustedProxies))
	}
	if cfg.Server.TrustedProxies[1] != "172.16.0.0/12" {
		t.Errorf("TrustedProxies[1]: got %q, want %q", cfg.Server.TrustedProxies[1], "172.16.0.0/12")
	}
}
