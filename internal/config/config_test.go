package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Discord: DiscordConfig{
			Token:     "test-token",
			GuildID:   "123456789",
			ChannelID: "987654321",
		},
		Audio: AudioConfig{
			SampleRate:        48000,
			TargetSampleRate:  16000,
			MinClipSeconds:    1.0,
			SilenceFinalizeMs: 600,
			PrerollMaxChunks:  10,
			FinalizeTickMs:    200,
		},
		Triggers: TriggersConfig{
			Phrases: []string{"hey bot", "listen up"},
			Victims: map[string]string{"hey bot": "Alice"},
		},
		Users: map[string]UserProfile{
			"100": {Name: "Alice", TargetName: "Bob", FriendlyFireGroup: "team-a"},
		},
		Groups: map[string][]string{
			"team-a": {"hey bot"},
		},
		STT: STTConfig{
			Endpoint:      "https://api.example.com/transcribe",
			APIKey:        "test-key",
			Timeout:       30,
			MaxRetries:    3,
			MaxConcurrent: 2,
			Language:      "en",
		},
		Responder: ResponderConfig{
			APIKey:      "test-key",
			BaseURL:     "https://api.x.ai/v1",
			Model:       "grok-2",
			Timeout:     30,
			Temperature: 0.9,
			MaxTokens:   150,
			Primary: PromptConfig{
				System:       "You are a witty companion.",
				UserTemplate: "{speaker_name} called out {victim_name}.",
			},
			AlternativeProbability: 20,
		},
		TTS: TTSConfig{
			Engine:    "espeak",
			OutputDir: "/tmp",
		},
		Connection: ConnectionConfig{
			MaxRestartAttempts:     5,
			RestartCooldownSeconds: 300,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name: "missing discord token",
			mutate: func(c *Config) {
				c.Discord.Token = ""
			},
			expectError: true,
			errorMsg:    "token must be set",
		},
		{
			name: "placeholder discord token",
			mutate: func(c *Config) {
				c.Discord.Token = "YOUR_DISCORD_TOKEN"
			},
			expectError: true,
			errorMsg:    "token must be set",
		},
		{
			name: "invalid capture sample rate",
			mutate: func(c *Config) {
				c.Audio.SampleRate = 44100
			},
			expectError: true,
			errorMsg:    "sample_rate must be 48000 Hz",
		},
		{
			name: "silence threshold too small",
			mutate: func(c *Config) {
				c.Audio.SilenceFinalizeMs = 50
			},
			expectError: true,
			errorMsg:    "silence_finalize_ms must be at least 100",
		},
		{
			name: "no trigger phrases",
			mutate: func(c *Config) {
				c.Triggers.Phrases = nil
			},
			expectError: true,
			errorMsg:    "at least one trigger phrase",
		},
		{
			name: "blank trigger phrase",
			mutate: func(c *Config) {
				c.Triggers.Phrases = []string{"hey bot", "   "}
			},
			expectError: true,
			errorMsg:    "trigger phrase 1 is empty",
		},
		{
			name: "user references unknown group",
			mutate: func(c *Config) {
				c.Users["100"] = UserProfile{Name: "Alice", FriendlyFireGroup: "ghosts"}
			},
			expectError: true,
			errorMsg:    "unknown friendly fire group",
		},
		{
			name: "responder probability out of range",
			mutate: func(c *Config) {
				c.Responder.AlternativeProbability = 150
			},
			expectError: true,
			errorMsg:    "alternative_probability must be between 0 and 100",
		},
		{
			name: "piper engine without piper section",
			mutate: func(c *Config) {
				c.TTS.Engine = "piper"
				c.TTS.Piper = nil
			},
			expectError: true,
			errorMsg:    "piper section is missing",
		},
		{
			name: "unknown tts engine",
			mutate: func(c *Config) {
				c.TTS.Engine = "festival"
			},
			expectError: true,
			errorMsg:    "engine must be 'piper' or 'espeak'",
		},
		{
			name: "zero restart attempts",
			mutate: func(c *Config) {
				c.Connection.MaxRestartAttempts = 0
			},
			expectError: true,
			errorMsg:    "max_restart_attempts must be at least 1",
		},
		{
			name: "invalid log level",
			mutate: func(c *Config) {
				c.Logging.Level = "trace"
			},
			expectError: true,
			errorMsg:    "level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)
			err := config.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config file",
			configYAML: `
discord:
  token: "test-token"
  guild_id: "123456789"
  channel_id: "987654321"
audio:
  sample_rate: 48000
  target_sample_rate: 16000
  min_clip_seconds: 1.0
  silence_finalize_ms: 600
  preroll_max_chunks: 10
  finalize_tick_ms: 200
triggers:
  phrases:
    - "hey bot"
stt:
  endpoint: "https://api.example.com/transcribe"
  api_key: "test-key"
  timeout: 30
  max_retries: 3
  max_concurrent: 2
responder:
  api_key: "test-key"
  model: "grok-2"
  timeout: 30
  primary:
    system: "You are a witty companion."
    user_template: "{speaker_name} called out {victim_name}."
tts:
  engine: "espeak"
connection:
  max_restart_attempts: 5
  restart_cooldown_seconds: 300
logging:
  level: "info"
  format: "json"
  output: "stdout"
`,
			expectError: false,
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
audio:
  sample_rate: not_a_number
`,
			expectError: true,
			errorMsg:    "failed to parse",
		},
		{
			name: "missing guild id",
			configYAML: `
discord:
  token: "test-token"
  channel_id: "987654321"
`,
			expectError: true,
			errorMsg:    "guild_id cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			err := os.WriteFile(configPath, []byte(tt.configYAML), 0644)
			if err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			config, err := Load(configPath)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				} else if config == nil {
					t.Errorf("Expected config to be loaded but got nil")
				}
			}
		})
	}
}

func TestConfigLoadNonexistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Errorf("Expected error for nonexistent file but got none")
	}
	if !contains(err.Error(), "failed to read config file") {
		t.Errorf("Expected error about reading file, got: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "env-token")
	t.Setenv("XAI_API_KEY", "env-xai-key")

	config := validConfig()
	config.Discord.Token = "file-token"
	config.applyEnvOverrides()

	if config.Discord.Token != "env-token" {
		t.Errorf("Expected env token override, got %s", config.Discord.Token)
	}
	if config.Responder.APIKey != "env-xai-key" {
		t.Errorf("Expected env responder key override, got %s", config.Responder.APIKey)
	}
}

func TestDurationHelpers(t *testing.T) {
	audio := AudioConfig{
		MinClipSeconds:    1.5,
		SilenceFinalizeMs: 600,
		FinalizeTickMs:    200,
	}

	if audio.GetMinClipDuration() != 1500*time.Millisecond {
		t.Errorf("Expected 1.5 seconds, got %v", audio.GetMinClipDuration())
	}

	if audio.GetSilenceFinalize() != 600*time.Millisecond {
		t.Errorf("Expected 600ms, got %v", audio.GetSilenceFinalize())
	}

	if audio.GetFinalizeTick() != 200*time.Millisecond {
		t.Errorf("Expected 200ms, got %v", audio.GetFinalizeTick())
	}

	stt := STTConfig{Timeout: 30}
	if stt.GetTimeoutDuration() != 30*time.Second {
		t.Errorf("Expected 30 seconds, got %v", stt.GetTimeoutDuration())
	}

	conn := ConnectionConfig{RestartCooldownSeconds: 300}
	if conn.GetRestartCooldown() != 5*time.Minute {
		t.Errorf("Expected 5 minutes, got %v", conn.GetRestartCooldown())
	}
}

func TestLookupHelpers(t *testing.T) {
	config := validConfig()

	user, ok := config.UserByID("100")
	if !ok || user.Name != "Alice" {
		t.Errorf("Expected Alice profile, got %+v ok=%v", user, ok)
	}

	if _, ok := config.UserByID("999"); ok {
		t.Errorf("Expected unknown speaker to miss")
	}

	if !config.IsFriendlyFire("hey bot", "100") {
		t.Errorf("Expected friendly fire for own group phrase")
	}

	if config.IsFriendlyFire("listen up", "100") {
		t.Errorf("Expected no friendly fire for phrase outside group")
	}

	if config.IsFriendlyFire("hey bot", "999") {
		t.Errorf("Expected no friendly fire for unknown speaker")
	}

	if got := config.VictimForPhrase("hey bot"); got != "Alice" {
		t.Errorf("Expected configured victim Alice, got %s", got)
	}

	if got := config.VictimForPhrase("listen up"); got != "Friend" {
		t.Errorf("Expected default victim Friend, got %s", got)
	}
}

// Helper function to check if a string contains a substring
func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(substr) == 0 ||
		(len(s) > len(substr) && findSubstring(s, substr)))
}

func findSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
