package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete agent configuration
type Config struct {
	Discord    DiscordConfig          `yaml:"discord"`
	Audio      AudioConfig            `yaml:"audio"`
	Triggers   TriggersConfig         `yaml:"triggers"`
	Users      map[string]UserProfile `yaml:"users"`
	Groups     map[string][]string    `yaml:"friendly_fire_groups"`
	STT        STTConfig              `yaml:"stt"`
	Responder  ResponderConfig        `yaml:"responder"`
	TTS        TTSConfig              `yaml:"tts"`
	Connection ConnectionConfig       `yaml:"connection"`
	Sounds     SoundsConfig           `yaml:"sounds"`
	Debug      DebugConfig            `yaml:"debug"`
	HTTP       HTTPConfig             `yaml:"http"`
	Logging    LoggingConfig          `yaml:"logging"`
}

// DiscordConfig contains gateway and voice channel settings
type DiscordConfig struct {
	Token     string `yaml:"token"`
	GuildID   string `yaml:"guild_id"`
	ChannelID string `yaml:"channel_id"`
}

// AudioConfig contains capture and segmentation parameters
type AudioConfig struct {
	SampleRate        int     `yaml:"sample_rate"`         // capture rate, Hz
	TargetSampleRate  int     `yaml:"target_sample_rate"`  // transcription rate, Hz
	MinClipSeconds    float64 `yaml:"min_clip_seconds"`    // clips shorter than this are discarded
	SilenceFinalizeMs int     `yaml:"silence_finalize_ms"` // silence after speech stop before finalize
	PrerollMaxChunks  int     `yaml:"preroll_max_chunks"`  // trailing fragments kept before speech onset
	FinalizeTickMs    int     `yaml:"finalize_tick_ms"`    // scheduler tick interval
}

// TriggersConfig contains the phrase list and per-phrase victim mapping
type TriggersConfig struct {
	Phrases []string          `yaml:"phrases"`
	Victims map[string]string `yaml:"victims"`
}

// UserProfile describes a known speaker
type UserProfile struct {
	Name              string `yaml:"name"`
	TargetName        string `yaml:"target_name"`
	FriendlyFireGroup string `yaml:"friendly_fire_group"`
}

// STTConfig contains transcription API configuration
type STTConfig struct {
	Endpoint      string `yaml:"endpoint"`
	APIKey        string `yaml:"api_key"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxRetries    int    `yaml:"max_retries"`
	MaxConcurrent int    `yaml:"max_concurrent"`
	Language      string `yaml:"language"`
	Model         string `yaml:"model"`
}

// PromptConfig is one system/user template pair
type PromptConfig struct {
	System       string `yaml:"system"`
	UserTemplate string `yaml:"user_template"`
}

// ResponderConfig contains response generation configuration
type ResponderConfig struct {
	APIKey                 string       `yaml:"api_key"`
	BaseURL                string       `yaml:"base_url"`
	Model                  string       `yaml:"model"`
	Timeout                int          `yaml:"timeout"` // seconds
	Temperature            float64      `yaml:"temperature"`
	MaxTokens              int          `yaml:"max_tokens"`
	Primary                PromptConfig `yaml:"primary"`
	Alternative            PromptConfig `yaml:"alternative"`
	AlternativeProbability int          `yaml:"alternative_probability"` // percent
}

// PiperConfig contains Piper engine settings
type PiperConfig struct {
	ExecutablePath string `yaml:"executable_path"`
	ModelPath      string `yaml:"model_path"`
}

// TTSConfig contains speech synthesis configuration
type TTSConfig struct {
	Engine    string       `yaml:"engine"` // "piper" or "espeak"
	OutputDir string       `yaml:"output_dir"`
	Piper     *PiperConfig `yaml:"piper"`
}

// ConnectionConfig contains voice link restart policy
type ConnectionConfig struct {
	MaxRestartAttempts     int `yaml:"max_restart_attempts"`
	RestartCooldownSeconds int `yaml:"restart_cooldown_seconds"`
}

// SoundsConfig contains optional announcement audio files
type SoundsConfig struct {
	Startup  string `yaml:"startup"`
	Shutdown string `yaml:"shutdown"`
}

// DebugConfig contains diagnostics settings
type DebugConfig struct {
	DumpWAVFiles  bool   `yaml:"dump_wav_files"`
	DumpDirectory string `yaml:"dump_directory"`
}

// HTTPConfig contains observability server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyEnvOverrides()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides lets secrets come from the environment instead of the file
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		c.Discord.Token = v
	}
	if v := os.Getenv("STT_API_KEY"); v != "" {
		c.STT.APIKey = v
	}
	if v := os.Getenv("XAI_API_KEY"); v != "" {
		c.Responder.APIKey = v
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Discord.Validate(); err != nil {
		return fmt.Errorf("discord config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Triggers.Validate(); err != nil {
		return fmt.Errorf("triggers config: %w", err)
	}

	if err := c.STT.Validate(); err != nil {
		return fmt.Errorf("stt config: %w", err)
	}

	if err := c.Responder.Validate(); err != nil {
		return fmt.Errorf("responder config: %w", err)
	}

	if err := c.TTS.Validate(); err != nil {
		return fmt.Errorf("tts config: %w", err)
	}

	if err := c.Connection.Validate(); err != nil {
		return fmt.Errorf("connection config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	for id, user := range c.Users {
		if user.Name == "" {
			return fmt.Errorf("user %s: name cannot be empty", id)
		}
		if user.FriendlyFireGroup != "" {
			if _, ok := c.Groups[user.FriendlyFireGroup]; !ok {
				return fmt.Errorf("user %s: unknown friendly fire group '%s'", id, user.FriendlyFireGroup)
			}
		}
	}

	return nil
}

// Validate validates discord configuration
func (d *DiscordConfig) Validate() error {
	if d.Token == "" || strings.HasPrefix(d.Token, "YOUR_") {
		return fmt.Errorf("token must be set (config file or DISCORD_TOKEN env)")
	}

	if d.GuildID == "" {
		return fmt.Errorf("guild_id cannot be empty")
	}

	if d.ChannelID == "" {
		return fmt.Errorf("channel_id cannot be empty")
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate != 48000 {
		return fmt.Errorf("sample_rate must be 48000 Hz for Discord voice, got %d", a.SampleRate)
	}

	if a.TargetSampleRate != 16000 {
		return fmt.Errorf("target_sample_rate must be 16000 Hz, got %d", a.TargetSampleRate)
	}

	if a.MinClipSeconds <= 0 {
		return fmt.Errorf("min_clip_seconds must be positive, got %f", a.MinClipSeconds)
	}

	if a.SilenceFinalizeMs < 100 {
		return fmt.Errorf("silence_finalize_ms must be at least 100, got %d", a.SilenceFinalizeMs)
	}

	if a.PrerollMaxChunks < 1 {
		return fmt.Errorf("preroll_max_chunks must be at least 1, got %d", a.PrerollMaxChunks)
	}

	if a.FinalizeTickMs == 0 {
		a.FinalizeTickMs = 200
	}
	if a.FinalizeTickMs < 10 {
		return fmt.Errorf("finalize_tick_ms must be at least 10, got %d", a.FinalizeTickMs)
	}

	return nil
}

// Validate validates trigger configuration
func (t *TriggersConfig) Validate() error {
	if len(t.Phrases) == 0 {
		return fmt.Errorf("at least one trigger phrase is required")
	}

	for i, phrase := range t.Phrases {
		if strings.TrimSpace(phrase) == "" {
			return fmt.Errorf("trigger phrase %d is empty", i)
		}
	}

	return nil
}

// Validate validates transcription configuration
func (s *STTConfig) Validate() error {
	if s.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if s.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", s.Timeout)
	}

	if s.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", s.MaxRetries)
	}

	if s.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", s.MaxConcurrent)
	}

	return nil
}

// Validate validates responder configuration
func (r *ResponderConfig) Validate() error {
	if r.APIKey == "" || strings.HasPrefix(r.APIKey, "YOUR_") {
		return fmt.Errorf("api_key must be set (config file or XAI_API_KEY env)")
	}

	if r.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	if r.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", r.Timeout)
	}

	if r.AlternativeProbability < 0 || r.AlternativeProbability > 100 {
		return fmt.Errorf("alternative_probability must be between 0 and 100, got %d", r.AlternativeProbability)
	}

	if r.Primary.System == "" || r.Primary.UserTemplate == "" {
		return fmt.Errorf("primary prompt must have system and user_template")
	}

	return nil
}

// Validate validates synthesis configuration
func (t *TTSConfig) Validate() error {
	switch t.Engine {
	case "piper":
		if t.Piper == nil {
			return fmt.Errorf("piper engine selected but piper section is missing")
		}
		if t.Piper.ExecutablePath == "" {
			return fmt.Errorf("piper executable_path cannot be empty")
		}
		if t.Piper.ModelPath == "" {
			return fmt.Errorf("piper model_path cannot be empty")
		}
	case "espeak":
		// no engine-specific settings
	default:
		return fmt.Errorf("engine must be 'piper' or 'espeak', got '%s'", t.Engine)
	}

	if t.OutputDir == "" {
		t.OutputDir = os.TempDir()
	}

	return nil
}

// Validate validates connection restart policy
func (c *ConnectionConfig) Validate() error {
	if c.MaxRestartAttempts < 1 {
		return fmt.Errorf("max_restart_attempts must be at least 1, got %d", c.MaxRestartAttempts)
	}

	if c.RestartCooldownSeconds < 1 {
		return fmt.Errorf("restart_cooldown_seconds must be at least 1, got %d", c.RestartCooldownSeconds)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetSilenceFinalize returns the silence threshold as a time.Duration
func (a *AudioConfig) GetSilenceFinalize() time.Duration {
	return time.Duration(a.SilenceFinalizeMs) * time.Millisecond
}

// GetFinalizeTick returns the scheduler tick interval as a time.Duration
func (a *AudioConfig) GetFinalizeTick() time.Duration {
	return time.Duration(a.FinalizeTickMs) * time.Millisecond
}

// GetMinClipDuration returns the minimum clip length as a time.Duration
func (a *AudioConfig) GetMinClipDuration() time.Duration {
	return time.Duration(a.MinClipSeconds * float64(time.Second))
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (s *STTConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// GetTimeoutDuration returns the responder timeout as a time.Duration
func (r *ResponderConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(r.Timeout) * time.Second
}

// GetRestartCooldown returns the restart attempt window as a time.Duration
func (c *ConnectionConfig) GetRestartCooldown() time.Duration {
	return time.Duration(c.RestartCooldownSeconds) * time.Second
}

// UserByID returns the profile for a speaker ID, if known
func (c *Config) UserByID(id string) (UserProfile, bool) {
	user, ok := c.Users[id]
	return user, ok
}

// IsFriendlyFire reports whether the phrase belongs to the speaker's own
// friendly fire group, in which case the response must be suppressed
func (c *Config) IsFriendlyFire(phrase, speakerID string) bool {
	user, ok := c.Users[speakerID]
	if !ok || user.FriendlyFireGroup == "" {
		return false
	}

	for _, p := range c.Groups[user.FriendlyFireGroup] {
		if p == phrase {
			return true
		}
	}
	return false
}

// VictimForPhrase returns the configured victim name for a trigger phrase
func (c *Config) VictimForPhrase(phrase string) string {
	if victim, ok := c.Triggers.Victims[phrase]; ok {
		return victim
	}
	return "Friend"
}
