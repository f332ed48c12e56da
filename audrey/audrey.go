// Package audrey implements a persona-driven Discord chat bot. A
// per-user conversation session, started with /parler and ended with
// /stop, turns plain channel messages into AI completion calls against
// an OpenAI-compatible provider, with an offline fallback persona when
// no provider token is configured.
package audrey

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-playground/validator/v10"
	"github.com/lmittmann/tint"
	"gorm.io/gorm"
	"log/slog"
)

var (
	// Version is set via -ldflags at build time
	Version = "dev"

	// CommitSHA is set via -ldflags at build time
	CommitSHA string

	// BuildTime is set via -ldflags at build time
	BuildTime string
)

// defaultLogWriter is the destination for all log handlers
var defaultLogWriter io.Writer = os.Stdout

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	return v
}

// ValidateConfig validates the given config against its binding tags.
func ValidateConfig(config *Config) error {
	if config == nil {
		return errors.New("nil config")
	}
	return structValidator.Struct(config)
}

// Audrey is the bot. Create it with New, then call Run, which blocks
// until the given context is canceled.
type Audrey struct {
	config     *Config
	logger     *slog.Logger
	logHandler slog.Handler

	db        *gorm.DB
	sessions  *SessionStore
	responder Responder
	discord   *Discord
	router    *MessageRouter
	riddles   *riddleGame
	api       *apiServer

	// picker serializes every random draw the command handlers make;
	// handlers run on spawned goroutines, so raw rng use would race
	picker *linePicker

	startedAt time.Time

	// eventsInProgress tracks in-flight message/interaction handlers
	// so Run can drain them on shutdown
	eventsInProgress sync.WaitGroup
}

// New creates a new Audrey bot from the given config. The config is
// validated, the database opened and migrated, and all components
// wired, but no connections are opened until Run.
func New(config *Config) (*Audrey, error) {
	if config == nil {
		return nil, errors.New("nil config")
	}
	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logHandler := newTintHandler(config.LogLevel)
	logger := slog.New(logHandler).With(loggerNameKey, "audrey")
	slog.SetDefault(slog.New(logHandler))

	bot := &Audrey{
		config:     config,
		logger:     logger,
		logHandler: logHandler,
		picker:     newLinePicker(nil),
	}
	logger.Info("loaded config", "config", config)

	db, err := CreateDB(
		config.Database,
		newTintHandler(config.DatabaseLogLevel),
		config.DatabaseSlowThreshold,
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	bot.db = db

	bot.sessions = NewSessionStore(config.HistoryCap, slog.New(logHandler))
	bot.responder = NewResponder(
		config.AI,
		slog.New(newTintHandler(config.AI.LogLevel)),
		config.HTTPClient,
		nil,
	)

	bot.discord = newDiscord(config.Discord)
	bot.discord.bot = bot
	bot.discord.logger = slog.New(
		newTintHandler(config.Discord.LogLevel),
	).With(loggerNameKey, "discord")
	if config.HTTPClient != nil && config.Discord.httpClient == nil {
		config.Discord.httpClient = config.HTTPClient
	}
	session, err := bot.discord.newSession()
	if err != nil {
		return nil, err
	}
	bot.discord.session = session
	if err = session.SetLogLevel(config.Discord.DiscordGoLogLevel.Level()); err != nil {
		logger.Warn("error setting discordgo log level", tint.Err(err))
	}
	discordgo.Logger = discordgoLoggerFunc(
		context.Background(),
		newTintHandler(config.Discord.DiscordGoLogLevel),
	)

	bot.riddles = newRiddleGame(db, bot.discord, bot.logger)
	bot.router = NewMessageRouter(
		bot.sessions,
		bot.responder,
		bot.discord,
		&commandLayer{riddles: bot.riddles, logger: bot.logger},
		bot.logger,
	)

	if config.API.Enabled {
		api, apiErr := newAPIServer(
			config.API,
			bot,
			slog.New(newTintHandler(config.API.LogLevel)),
		)
		if apiErr != nil {
			return nil, apiErr
		}
		bot.api = api
	}

	return bot, nil
}

// Run connects to the Discord gateway, registers the slash commands,
// starts the keep-alive server when enabled, and blocks until ctx is
// canceled, then shuts everything down gracefully.
func (a *Audrey) Run(ctx context.Context) error {
	a.startedAt = time.Now()
	ctx = WithLogger(ctx, a.logger)

	a.discordgoRemoveHandlers(
		a.discord.session.AddHandler(a.discord.handlerReady()),
		a.discord.session.AddHandler(a.discord.handlerConnect()),
		a.discord.session.AddHandler(a.discord.handlerDisconnect()),
		a.discord.session.AddHandler(a.handlerMessageCreate(ctx)),
		a.discord.session.AddHandler(a.handlerInteractionCreate()),
	)

	if err := a.discord.session.Open(); err != nil {
		return fmt.Errorf("error opening discord session: %w", err)
	}
	a.logger.Info("discord session opened")

	registered, err := a.discord.registerCommands()
	if err != nil {
		return fmt.Errorf("error registering commands: %w", err)
	}
	a.logger.Info("registered commands", "count", len(registered))

	apiErrCh := make(chan error, 1)
	if a.api != nil {
		go func() {
			apiErrCh <- a.api.Serve(ctx)
		}()
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
	case err = <-apiErrCh:
		if err != nil {
			a.logger.Error("api server failed", tint.Err(err))
		}
	}

	return a.shutdown(err)
}

func (a *Audrey) shutdown(runErr error) error {
	done := make(chan struct{})
	go func() {
		a.eventsInProgress.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(a.config.ShutdownTimeout):
		a.logger.Warn("shutdown timeout elapsed with events in flight")
	}

	for _, removeFunc := range a.discord.discordgoRemoveHandlerFuncs {
		removeFunc()
	}

	if err := a.discord.session.Close(); err != nil {
		a.logger.Error("error closing discord session", tint.Err(err))
		runErr = errors.Join(runErr, err)
	} else {
		a.logger.Info("discord session closed")
	}
	return runErr
}

func (a *Audrey) discordgoRemoveHandlers(removeFuncs ...func()) {
	a.discord.discordgoRemoveHandlerFuncs = append(
		a.discord.discordgoRemoveHandlerFuncs,
		removeFuncs...,
	)
}

// handlerMessageCreate adapts gateway message events into
// InboundMessage values and hands them to the router. Each event is
// routed on its own goroutine so a slow completion call never stalls
// the gateway; per-user ordering is enforced by the session store's
// user locks, not here.
func (a *Audrey) handlerMessageCreate(ctx context.Context) func(
	s *discordgo.Session,
	m *discordgo.MessageCreate,
) {
	return func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil {
			return
		}
		botUser := a.discord.BotUser()
		if botUser == nil {
			return
		}
		msg := InboundMessage{
			AuthorID:     m.Author.ID,
			ChannelID:    m.ChannelID,
			Text:         m.Content,
			IsSelf:       m.Author.ID == botUser.ID || m.Author.Bot,
			IsBotMention: messageMentionsUser(m.Message, botUser.ID),
		}
		a.eventsInProgress.Add(1)
		go func() {
			defer a.eventsInProgress.Done()
			a.router.Route(ctx, msg)
		}()
	}
}

// ensure the Discord wrapper satisfies the router's sender contract
var _ ReplySender = (*Discord)(nil)
