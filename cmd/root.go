package cmd

import (
	"context"
	"fmt"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/mopasmoi-ai/discord-bot-audrey/audrey"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"
)

var (
	cfg        = audrey.DefaultConfig()
	configFile string
)

var rootCmd = &cobra.Command{
	Use: "audrey [flags]",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		err := viper.Unmarshal(
			cfg,
			viper.DecodeHook(
				mapstructure.ComposeDecodeHookFunc(
					mapstructure.StringToTimeDurationHookFunc(),
					LevelToStringHookFunc(),
				),
			),
		)
		if err != nil {
			log.Fatalln(err)
		}
	},
}

func getLogLevel(level string) (slog.Level, error) {
	switch level {
	case slog.LevelDebug.String():
		return slog.LevelDebug, nil
	case slog.LevelInfo.String():
		return slog.LevelInfo, nil
	case slog.LevelWarn.String():
		return slog.LevelWarn, nil
	case slog.LevelError.String():
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

func LevelToStringHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data any,
	) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		if t.Kind() != reflect.Ptr {
			return data, nil
		}

		typ := t.Elem()

		if typ != reflect.TypeOf(slog.LevelVar{}) {
			return data, nil
		}
		lvl, err := getLogLevel(data.(string))
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %s", data)
		}
		lvlVar := &slog.LevelVar{}
		lvlVar.Set(lvl)
		return lvlVar, nil
	}
}

func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	rootCmd.SetContext(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(
		signals,
		os.Interrupt,
		syscall.SIGHUP,
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer func() {
		signal.Stop(signals)
		cancel()
	}()
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
			//
		}
	}()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func initConfig() {
	if configFile == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found")
		}
	} else {
		fmt.Println("loading env from file", configFile)
		if err := godotenv.Load(configFile); err != nil {
			log.Println("No .env file found")
		}
	}

	viper.SetDefault("database", audrey.DefaultDatabase)
	viper.SetDefault(
		"database_slow_threshold",
		audrey.DefaultDatabaseSlowThreshold,
	)
	viper.SetDefault(
		"database_log_level",
		audrey.DefaultDatabaseLogLevel.String(),
	)

	viper.SetDefault("log_level", audrey.DefaultLogLevel.String())
	viper.SetDefault("shutdown_timeout", audrey.DefaultShutdownTimeout)
	viper.SetDefault("history_cap", audrey.DefaultHistoryCap)

	// AI config
	viper.SetDefault("ai.token", "")
	viper.SetDefault("ai.base_url", audrey.DefaultAIBaseURL)
	viper.SetDefault("ai.model", audrey.DefaultAIModel)
	viper.SetDefault("ai.max_tokens", audrey.DefaultAIMaxTokens)
	viper.SetDefault("ai.temperature", audrey.DefaultAITemperature)
	viper.SetDefault("ai.request_timeout", audrey.DefaultAIRequestTimeout)
	viper.SetDefault("ai.context_turns", audrey.DefaultAIContextTurns)
	viper.SetDefault(
		"ai.requests_per_second",
		audrey.DefaultAIRequestsPerSecond,
	)
	viper.SetDefault("ai.log_level", audrey.DefaultAILogLevel.String())

	// Discord config
	viper.SetDefault("discord.token", "")
	viper.SetDefault("discord.application_id", "")
	viper.SetDefault("discord.guild_id", "")
	viper.SetDefault(
		"discord.log_level",
		audrey.DefaultDiscordLogLevel.String(),
	)
	viper.SetDefault(
		"discord.discordgo_log_level",
		audrey.DefaultDiscordgoLogLevel.String(),
	)
	viper.SetDefault(
		"discord.gateway_intents",
		audrey.DefaultDiscordGatewayIntent,
	)
	viper.SetDefault("discord.custom_status", audrey.DefaultDiscordCustomStatus)

	// Keep-alive server config
	viper.SetDefault("api.enabled", true)
	viper.SetDefault("api.listen", audrey.DefaultAPIListen)
	viper.SetDefault("api.listen_network", "tcp")
	viper.SetDefault("api.log_level", audrey.DefaultAPILogLevel.String())
	viper.SetDefault("api.read_timeout", audrey.DefaultReadTimeout)
	viper.SetDefault(
		"api.read_header_timeout",
		audrey.DefaultReadHeaderTimeout,
	)
	viper.SetDefault("api.write_timeout", audrey.DefaultWriteTimeout)
	viper.SetDefault("api.idle_timeout", audrey.DefaultIdleTimeout)

	envPrefix := os.Getenv(audrey.EnvvarSetEnvPrefix)
	if envPrefix == "" {
		envPrefix = audrey.DefaultEnvPrefix
	}
	viper.SetEnvPrefix(envPrefix)

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	for _, key := range []string{
		"log_level",
		"database_log_level",
		"ai.log_level",
		"discord.log_level",
		"discord.discordgo_log_level",
		"api.log_level",
	} {
		logLevelVar, err := levelStringToLevelVar(viper.GetString(key))
		if err != nil {
			log.Fatalf("error parsing %s: %v", key, err)
		}
		viper.Set(key, logLevelVar)
	}
}

func levelStringToLevelVar(lvl string) (*slog.LevelVar, error) {
	level := &slog.LevelVar{}
	err := level.UnmarshalText([]byte(lvl))
	return level, err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&configFile,
		"config",
		"",
		"Env file to use",
	)
}
