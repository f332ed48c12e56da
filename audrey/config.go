//nolint:lll // struct tags can't be split
package audrey

import (
	"github.com/bwmarrin/discordgo"
	"log/slog"
	"net/http"
	"time"
)

const (
	EnvvarSetEnvPrefix = "AUDREY_ENV_PREFIX"
	DefaultEnvPrefix   = "AUDREY"

	DefaultDatabase              = "audrey.sqlite3"
	DefaultDatabaseSlowThreshold = 200 * time.Millisecond
	DefaultDatabaseLogLevel      = slog.LevelInfo

	DefaultLogLevel        = slog.LevelInfo
	DefaultShutdownTimeout = 30 * time.Second

	DefaultAIBaseURL            = "https://api.routeway.ai/v1"
	DefaultAIModel              = "kimi-k2-0905:free"
	DefaultAIMaxTokens          = 300
	DefaultAITemperature        = float32(0.8)
	DefaultAIRequestTimeout     = 30 * time.Second
	DefaultAIContextTurns       = 6
	DefaultAIRequestsPerSecond  = 1
	DefaultAILogLevel           = slog.LevelInfo
	DefaultHistoryCap           = 10
	DefaultDiscordLogLevel      = slog.LevelWarn
	DefaultDiscordgoLogLevel    = slog.LevelWarn
	DefaultDiscordGatewayIntent = discordgo.IntentsAllWithoutPrivileged |
		discordgo.IntentsMessageContent
	DefaultDiscordCustomStatus = "/aide pour les commandes"

	DefaultAPIListen         = "0.0.0.0:8080"
	defaultListenNetwork     = "tcp"
	DefaultAPILogLevel       = slog.LevelInfo
	DefaultReadTimeout       = 5 * time.Second
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultIdleTimeout       = 30 * time.Second

	DiscordSlashCommandParler     = "parler"
	DiscordSlashCommandStop       = "stop"
	DiscordSlashCommandTarot      = "tarot"
	DiscordSlashCommandDevinette  = "devinette"
	DiscordSlashCommandAide       = "aide"
	DiscordSlashCommandStatut     = "statut"
	DiscordSlashCommandRoleAdd    = "ajouter_role"
	DiscordSlashCommandRoleRemove = "retirer_role"
	DiscordSlashCommandRoleList   = "roles_audrey"

	discordMaxMessageLength = 2000

	// replyMaxLength leaves room to append a flourish after a
	// hard truncation without crossing discordMaxMessageLength
	replyMaxLength = 1900
)

// Config is the top-level configuration, populated by cmd/ from
// environment variables and an optional .env file. All values are
// fixed at process start; there is no hot reload.
type Config struct {
	// Database is the sqlite database path used for tarot draws and scores
	Database string `yaml:"database" mapstructure:"database" json:"database" binding:"required"`

	// DatabaseLogLevel sets the log level for database operations
	DatabaseLogLevel *slog.LevelVar `yaml:"database_log_level" mapstructure:"database_log_level" json:"database_log_level"`

	// DatabaseSlowThreshold is the duration threshold for identifying slow database queries
	DatabaseSlowThreshold time.Duration `yaml:"database_slow_threshold" mapstructure:"database_slow_threshold" json:"database_slow_threshold"`

	// AI holds the configuration for the completion provider
	AI *AIConfig `yaml:"ai" mapstructure:"ai" json:"ai"`

	// Discord configures aspects of the Discord bot itself
	Discord *DiscordConfig `yaml:"discord" mapstructure:"discord" json:"discord"`

	// API configures the keep-alive HTTP server
	API *APIConfig `yaml:"api" mapstructure:"api" json:"api"`

	// HistoryCap is the maximum number of turns retained per
	// conversation. Oldest turns are evicted first.
	HistoryCap int `yaml:"history_cap" mapstructure:"history_cap" json:"history_cap" binding:"min=2"`

	// LogLevel is the base log level, for the default logger
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// ShutdownTimeout is the time to allow for a graceful shutdown. After this
	// elapses, the bot will force close all connections and exit.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" json:"shutdown_timeout"`

	HTTPClient *http.Client `log:"[redacted]"`
}

func (c Config) LogValue() slog.Value {
	return structToSlogValue(c)
}

// AIConfig configures the completion provider. An empty Token is not
// an error: the bot runs with the offline responder instead, and no
// network calls are made.
type AIConfig struct {
	// Provider API token. Empty means offline mode.
	Token string `yaml:"token" mapstructure:"token" json:"token" log:"[redacted]"`

	// BaseURL is the root of an OpenAI-compatible chat completions API
	BaseURL string `yaml:"base_url" mapstructure:"base_url" json:"base_url" binding:"required,url"`

	// Model sent with each completion request
	Model string `yaml:"model" mapstructure:"model" json:"model" binding:"required"`

	// MaxTokens caps the provider-side completion length
	MaxTokens int `yaml:"max_tokens" mapstructure:"max_tokens" json:"max_tokens" binding:"min=1"`

	// Temperature is the provider sampling temperature
	Temperature float32 `yaml:"temperature" mapstructure:"temperature" json:"temperature"`

	// RequestTimeout bounds each completion request. On expiry the
	// in-flight request is abandoned, never retried.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout" json:"request_timeout" binding:"min=1s"`

	// ContextTurns is the number of recent conversation turns sent
	// with each request. Independent of Config.HistoryCap.
	ContextTurns int `yaml:"context_turns" mapstructure:"context_turns" json:"context_turns" binding:"min=1"`

	// RequestsPerSecond limits outbound provider calls
	RequestsPerSecond int `yaml:"requests_per_second" mapstructure:"requests_per_second" json:"requests_per_second" binding:"min=1"`

	// AI base log level
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`
}

// DiscordConfig configures the discord bot itself.
//
//nolint:lll // can't break tags
type DiscordConfig struct {
	// Discord bot token (from the 'Bot' tab in the discord dev portal)
	Token string `yaml:"token" mapstructure:"token" json:"token" log:"[redacted]" binding:"required"`

	// Discord application ID (from the 'General Information' tab in the discord dev portal)
	ApplicationID string `yaml:"application_id" mapstructure:"application_id" json:"application_id" binding:"required"`

	// GuildID specifies the guild ID used when registering slash commands.
	// Leave empty for commands to be registered as global.
	GuildID string `yaml:"guild_id" mapstructure:"guild_id" json:"guild_id"`

	// Base discord logging level
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// Log level for the `discordgo` library's logger
	DiscordGoLogLevel *slog.LevelVar `yaml:"discordgo_log_level" mapstructure:"discordgo_log_level" json:"discordgo_log_level"`

	// Discord gateway intents. See: https://discord.com/developers/docs/topics/gateway#gateway-intents
	GatewayIntents discordgo.Intent `yaml:"gateway_intents" mapstructure:"gateway_intents" json:"gateway_intents"`

	// CustomStatus is set as the bot's activity on connect
	CustomStatus string `yaml:"custom_status" mapstructure:"custom_status" json:"custom_status"`

	httpClient *http.Client
}

// APIConfig configures the keep-alive HTTP server.
type APIConfig struct {
	// Determines if the keep-alive server should be active
	Enabled bool `yaml:"enabled" mapstructure:"enabled" json:"enabled"`

	// The address and port on which the server should listen (e.g., "0.0.0.0:8080")
	Listen string `yaml:"listen" mapstructure:"listen" json:"listen" binding:"required_if=Enabled true,hostname|filepath"`

	// The network type for listening (e.g., "tcp", "tcp4", "tcp6", "unix")
	ListenNetwork string `yaml:"listen_network" mapstructure:"listen_network" json:"listen_network" binding:"required_if=Enabled true,oneof=tcp tcp4 tcp6 unix"`

	// The logging level for the keep-alive server
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// Maximum duration for reading the entire request, including the body
	ReadTimeout time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" json:"read_timeout" binding:"required_if=Enabled true,min=1s"`

	// Amount of time allowed to read request headers
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" mapstructure:"read_header_timeout" json:"read_header_timeout" binding:"required_if=Enabled true,min=1s"`

	// Maximum duration before timing out writes of the response
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" json:"write_timeout" binding:"required_if=Enabled true,min=1s"`

	// Maximum amount of time to wait for the next request when keep-alives are enabled
	IdleTimeout time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" json:"idle_timeout" binding:"required_if=Enabled true,min=1s"`
}

// DefaultConfig returns a Config with all default settings populated
func DefaultConfig() *Config {
	mainLogLevel := &slog.LevelVar{}
	aiLogLevel := &slog.LevelVar{}
	discordLogLevel := &slog.LevelVar{}
	discordgoLogLevel := &slog.LevelVar{}
	dbLogLevel := &slog.LevelVar{}
	apiLogLevel := &slog.LevelVar{}

	mainLogLevel.Set(DefaultLogLevel)
	aiLogLevel.Set(DefaultAILogLevel)
	discordLogLevel.Set(DefaultDiscordLogLevel)
	discordgoLogLevel.Set(DefaultDiscordgoLogLevel)
	dbLogLevel.Set(DefaultDatabaseLogLevel)
	apiLogLevel.Set(DefaultAPILogLevel)

	return &Config{
		Database:              DefaultDatabase,
		DatabaseLogLevel:      dbLogLevel,
		DatabaseSlowThreshold: DefaultDatabaseSlowThreshold,
		HistoryCap:            DefaultHistoryCap,
		LogLevel:              mainLogLevel,
		ShutdownTimeout:       DefaultShutdownTimeout,
		AI: &AIConfig{
			BaseURL:           DefaultAIBaseURL,
			Model:             DefaultAIModel,
			MaxTokens:         DefaultAIMaxTokens,
			Temperature:       DefaultAITemperature,
			RequestTimeout:    DefaultAIRequestTimeout,
			ContextTurns:      DefaultAIContextTurns,
			RequestsPerSecond: DefaultAIRequestsPerSecond,
			LogLevel:          aiLogLevel,
		},
		Discord: &DiscordConfig{
			GatewayIntents:    DefaultDiscordGatewayIntent,
			LogLevel:          discordLogLevel,
			DiscordGoLogLevel: discordgoLogLevel,
			CustomStatus:      DefaultDiscordCustomStatus,
		},
		API: &APIConfig{
			Enabled:           true,
			Listen:            DefaultAPIListen,
			ListenNetwork:     defaultListenNetwork,
			LogLevel:          apiLogLevel,
			ReadTimeout:       DefaultReadTimeout,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			WriteTimeout:      DefaultWriteTimeout,
			IdleTimeout:       DefaultIdleTimeout,
		},
	}
}
