package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Configuration, loaded once at startup. The counsel team is an immutable
// snapshot for the process lifetime; deliberations never mutate it.
var (
	// OpenRouterAPIKey is the API key for OpenRouter.
	OpenRouterAPIKey string

	// OpenRouterAPIURL is the chat-completions endpoint.
	OpenRouterAPIURL = "https://openrouter.ai/api/v1/chat/completions"

	// CounselTeam is the configured list of counsel members queried in
	// Stages 1 and 2.
	CounselTeam = DefaultCounselTeam()

	// LeadCounselModel performs the Stage 3 synthesis.
	LeadCounselModel = "google/gemini-3-pro-preview"

	// DataDir is the directory for matter storage.
	DataDir = "data/matters"

	// APIPort is the HTTP listen port.
	APIPort = "8001"

	// ModelQueryTimeout is the per-call gateway timeout.
	ModelQueryTimeout = 120 * time.Second

	// CORSAllowedOrigins restricts cross-origin access in production. When
	// empty, any localhost origin is accepted (development mode).
	CORSAllowedOrigins = []string{}

	// MaxRequestBodySize caps request bodies at 1MB.
	MaxRequestBodySize int64 = 1 << 20

	// PageCacheTTL is the time-to-live for fetched URL content.
	PageCacheTTL = 5 * time.Minute
)

// DefaultCounselTeam pairs the four core litigation personas with the
// default model lineup.
func DefaultCounselTeam() []CounselMember {
	return []CounselMember{
		{Role: "plaintiff_strategist", Model: "openai/gpt-5.1"},
		{Role: "defense_analyst", Model: "google/gemini-3-pro-preview"},
		{Role: "procedural_specialist", Model: "anthropic/claude-sonnet-4.5"},
		{Role: "evidence_counsel", Model: "x-ai/grok-4"},
	}
}

// teamConfigFile is the YAML shape of an external team configuration.
type teamConfigFile struct {
	CounselTeam      []CounselMember `yaml:"counsel_team"`
	LeadCounselModel string          `yaml:"lead_counsel_model"`
}

// LoadConfig loads configuration from .env, environment variables, and the
// optional counsel team YAML file. Fatal on a missing API key or an invalid
// team file: a misconfigured team should fail at startup, not mid-matter.
func LoadConfig() {
	envLocations := []string{
		".env",
		"../.env",
	}

	envLoaded := false
	for _, envPath := range envLocations {
		absPath, err := filepath.Abs(envPath)
		if err != nil {
			continue
		}
		if _, err := os.Stat(absPath); err == nil {
			if err := godotenv.Load(absPath); err == nil {
				log.Printf("Loaded .env from: %s", absPath)
				envLoaded = true
				break
			}
		}
	}
	if !envLoaded {
		log.Printf("Warning: .env file not found in any expected location")
	}

	OpenRouterAPIKey = os.Getenv("OPENROUTER_API_KEY")
	if OpenRouterAPIKey == "" {
		log.Fatal("OPENROUTER_API_KEY environment variable is required")
	}

	if port := os.Getenv("API_PORT"); port != "" {
		APIPort = port
	}
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		DataDir = dir
	}
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		CORSAllowedOrigins = nil
		for _, origin := range strings.Split(corsOrigins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				CORSAllowedOrigins = append(CORSAllowedOrigins, origin)
			}
		}
	}

	if teamFile := os.Getenv("COUNSEL_TEAM_FILE"); teamFile != "" {
		team, leadModel, err := LoadTeamFile(teamFile)
		if err != nil {
			log.Fatalf("Failed to load counsel team from %s: %v", teamFile, err)
		}
		CounselTeam = team
		if leadModel != "" {
			LeadCounselModel = leadModel
		}
		log.Printf("Loaded counsel team from %s: %d members", teamFile, len(team))
	}

	// Resolve display names once so downstream code never consults the
	// persona table for them.
	for i := range CounselTeam {
		CounselTeam[i].DisplayName = PersonaDisplayName(CounselTeam[i].Role)
	}

	log.Println("Configuration loaded successfully")
}

// LoadTeamFile reads and validates a counsel team YAML file.
func LoadTeamFile(path string) ([]CounselMember, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read team file: %w", err)
	}

	var cfg teamConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse team file: %w", err)
	}

	if err := ValidateTeam(cfg.CounselTeam); err != nil {
		return nil, "", err
	}
	return cfg.CounselTeam, cfg.LeadCounselModel, nil
}

// ValidateTeam checks a counsel team configuration: non-empty, known
// persona roles, non-empty models, no duplicate roles.
func ValidateTeam(team []CounselMember) error {
	if len(team) == 0 {
		return fmt.Errorf("counsel team must not be empty")
	}

	seen := make(map[string]bool, len(team))
	for _, member := range team {
		if member.Role == "" {
			return fmt.Errorf("counsel member missing role")
		}
		if _, ok := GetPersona(member.Role); !ok {
			return fmt.Errorf("unknown attorney role: %s", member.Role)
		}
		if member.Model == "" {
			return fmt.Errorf("counsel member %s missing model", member.Role)
		}
		if seen[member.Role] {
			return fmt.Errorf("duplicate counsel role: %s", member.Role)
		}
		seen[member.Role] = true
	}
	return nil
}
