package configs

import "testing"

func TestValidateRejectsEmptyJWTSecret(t *testing.T) {
	cfg := &Config{JWTSecret: ""}
	if err := cfg.Validate(); err == nil {
		t.Error("Config with no JWT secret must not validate")
	}
}

func TestValidateAcceptsSetSecret(t *testing.T) {
	cfg := &Config{JWTSecret: "s3cret"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Valid config rejected: %v", err)
	}
}

func TestLoadConfigValidatesSecretFromEnv(t *testing.T) {
	t.Setenv("PREPCHAT_JWT_SECRET", "from-env")
	cfg := LoadConfig()
	if cfg.JWTSecret != "from-env" {
		t.Errorf("Secret not read from environment, got %q", cfg.JWTSecret)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed with secret set: %v", err)
	}
}
