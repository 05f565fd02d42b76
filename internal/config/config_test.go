package config

import (
	"os"
	"testing"
	"time"
)

// Test environment variable keys.
const (
	testEnvPostgresDSN = "POSTGRES_DSN"
	testEnvBotToken    = "BOT_TOKEN"
	testEnvLLMAPIKey   = "LLM_API_KEY"
	testEnvAdminIDs    = "ADMIN_IDS"
)

// Test values.
const (
	testPostgresDSN = "postgres://localhost/test"
	testBotToken    = "123456:ABC-DEF"
	testLLMAPIKey   = "mock"
	testErrLoad     = "Load() error = %v"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()

	t.Setenv(testEnvPostgresDSN, testPostgresDSN)
	t.Setenv(testEnvBotToken, testBotToken)
	t.Setenv(testEnvLLMAPIKey, testLLMAPIKey)
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv(testEnvPostgresDSN)
	os.Unsetenv(testEnvBotToken)
	os.Unsetenv(testEnvLLMAPIKey)

	_, err := Load()
	if err == nil {
		t.Error("expected error for missing required env vars")
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.PostgresDSN != testPostgresDSN {
		t.Errorf("PostgresDSN = %q, want %q", cfg.PostgresDSN, testPostgresDSN)
	}

	if cfg.BotToken != testBotToken {
		t.Errorf("BotToken = %q, want %q", cfg.BotToken, testBotToken)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.AppEnv != "local" {
		t.Errorf("AppEnv = %q, want %q", cfg.AppEnv, "local")
	}

	if cfg.LLMModel != "gpt-4o-mini" {
		t.Errorf("LLMModel = %q, want %q", cfg.LLMModel, "gpt-4o-mini")
	}

	if cfg.TokenBudget != 3000 {
		t.Errorf("TokenBudget = %d, want %d", cfg.TokenBudget, 3000)
	}

	if cfg.MessageCountBudget != 50 {
		t.Errorf("MessageCountBudget = %d, want %d", cfg.MessageCountBudget, 50)
	}

	if cfg.AnalyzeDefaultWindow != 720*time.Hour {
		t.Errorf("AnalyzeDefaultWindow = %v, want %v", cfg.AnalyzeDefaultWindow, 720*time.Hour)
	}

	if len(cfg.CustomerKeywords) == 0 {
		t.Error("CustomerKeywords should have a non-empty default")
	}
}

func TestLoad_AdminIDs(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv(testEnvAdminIDs, "100,200,300")

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if len(cfg.AdminIDs) != 3 {
		t.Fatalf("AdminIDs = %v, want 3 entries", cfg.AdminIDs)
	}

	if cfg.AdminIDs[1] != 200 {
		t.Errorf("AdminIDs[1] = %d, want %d", cfg.AdminIDs[1], 200)
	}
}
