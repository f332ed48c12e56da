package audrey

import (
	"fmt"
	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"log/slog"
	"sync/atomic"
)

// Embed accent colors, matching the palette the bot has always used.
const (
	colorPurple     = 0x9B59B6
	colorDarkPurple = 0x71368A
	colorGreen      = 0x2ECC71
	colorRed        = 0xE74C3C
	colorGold       = 0xF1C40F
	colorDarkGold   = 0xC27C0E
	colorBlue       = 0x3498DB
)

const parlerMessageOption = "message"

// Discord manages the gateway session, slash command registration and
// outbound replies.
type Discord struct {
	session                     DiscordSessionHandler
	config                      *DiscordConfig
	logger                      *slog.Logger
	metricConnects              atomic.Int64
	metricDisconnects           atomic.Int64
	connected                   atomic.Bool
	botUser                     atomic.Pointer[discordgo.User]
	discordgoRemoveHandlerFuncs []func()
	bot                         *Audrey
}

// BotUser returns the bot's own user as seen in the last Ready event,
// or nil before the first connection.
func (d *Discord) BotUser() *discordgo.User {
	return d.botUser.Load()
}

func newDiscord(config *DiscordConfig) *Discord {
	return &Discord{
		config:                      config,
		discordgoRemoveHandlerFuncs: []func(){},
	}
}

// newSession initializes a new Discord session for the Discord struct.
// It sets up the session with the appropriate logger, token, and configuration.
func (d *Discord) newSession() (DiscordSessionHandler, error) {
	session := DiscordSession{
		logger: d.logger.With(loggerNameKey, "discord_session_handler"),
	}
	disc, err := discordgo.New("Bot " + d.config.Token)
	if err != nil {
		return session, fmt.Errorf("error creating discord session: %w", err)
	}
	disc.Identify.Intents = d.config.GatewayIntents
	disc.SyncEvents = true
	disc.StateEnabled = false
	session.session = disc
	if d.config.httpClient != nil {
		disc.Client = d.config.httpClient
	}
	return session, nil
}

// Send delivers a plain-text message - the dialogue path. Replies
// inside a conversation are never decorated.
func (d *Discord) Send(channelID string, text string) error {
	_, err := d.session.ChannelMessageSend(channelID, text)
	return err
}

// SendDecorated delivers an embed - the command path.
func (d *Discord) SendDecorated(
	channelID string,
	title string,
	text string,
	color int,
) error {
	_, err := d.session.ChannelMessageSendEmbed(
		channelID,
		&discordgo.MessageEmbed{
			Title:       title,
			Description: text,
			Color:       color,
		},
	)
	return err
}

// Typing shows the "Audrey tape..." indicator. Failures are only
// logged: a missing indicator never blocks a reply.
func (d *Discord) Typing(channelID string) {
	if err := d.session.ChannelTyping(channelID); err != nil {
		d.logger.Warn("error sending typing indicator", tint.Err(err))
	}
}

func (d *Discord) handlerReady() func(
	s *discordgo.Session,
	r *discordgo.Ready,
) {
	return func(s *discordgo.Session, r *discordgo.Ready) {
		d.botUser.Store(r.User)
		d.logger.Info(
			"Ready",
			"session_id", r.SessionID,
			columnUserID, r.User.ID,
			"username", r.User.Username,
		)
		if d.config.CustomStatus != "" {
			if err := d.session.UpdateListeningStatus(d.config.CustomStatus); err != nil {
				d.logger.Error("error setting custom status", tint.Err(err))
			}
		}
	}
}

func (d *Discord) handlerConnect() func(
	s *discordgo.Session,
	r *discordgo.Connect,
) {
	return func(s *discordgo.Session, r *discordgo.Connect) {
		d.metricConnects.Add(1)
		d.connected.Store(true)
		d.logger.Info("Connected")
	}
}

func (d *Discord) handlerDisconnect() func(
	s *discordgo.Session,
	r *discordgo.Disconnect,
) {
	return func(s *discordgo.Session, r *discordgo.Disconnect) {
		d.connected.Store(false)
		d.metricDisconnects.Add(1)
		d.logger.Info("disconnected")
	}
}

// registerCommands sends the bot's commands to the discord bulk
// overwrite endpoint.
func (d *Discord) registerCommands(
	options ...discordgo.RequestOption,
) ([]*discordgo.ApplicationCommand, error) {
	commands := []*discordgo.ApplicationCommand{
		d.appCommandParler(),
		d.appCommandStop(),
		d.appCommandTarot(),
		d.appCommandDevinette(),
		d.appCommandAide(),
		d.appCommandStatut(),
		d.appCommandRoleAdd(),
		d.appCommandRoleRemove(),
		d.appCommandRoleList(),
	}

	created, err := d.session.ApplicationCommandBulkOverwrite(
		d.config.ApplicationID,
		d.config.GuildID,
		commands,
		options...,
	)
	if err != nil {
		d.logger.Error("error overwriting discord commands", tint.Err(err))
		return created, err
	}
	for _, c := range created {
		d.logger.Info("Created command", "command", c.Name)
	}
	return created, nil
}

func (*Discord) appCommandParler() *discordgo.ApplicationCommand {
	minLength := 1
	return &discordgo.ApplicationCommand{
		Name:        DiscordSlashCommandParler,
		Description: "Démarrer une conversation avec Lady Audrey Hall",
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        parlerMessageOption,
				Description: "Votre premier message pour Audrey",
				Required:    true,
				MinLength:   &minLength,
			},
		},
	}
}

func (*Discord) appCommandStop() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        DiscordSlashCommandStop,
		Description: "Mettre fin à la conversation avec Audrey",
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (*Discord) appCommandTarot() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        DiscordSlashCommandTarot,
		Description: "Tirer une carte du tarot mystique",
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (*Discord) appCommandDevinette() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        DiscordSlashCommandDevinette,
		Description: "Une énigme issue des anciens textes",
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (*Discord) appCommandAide() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        DiscordSlashCommandAide,
		Description: "Voir les commandes disponibles",
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (*Discord) appCommandStatut() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        DiscordSlashCommandStatut,
		Description: "Voir le statut de votre conversation",
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (*Discord) appCommandRoleAdd() *discordgo.ApplicationCommand {
	adminPerm := int64(discordgo.PermissionAdministrator)
	return &discordgo.ApplicationCommand{
		Name:                     DiscordSlashCommandRoleAdd,
		Description:              "Ajouter un rôle à Audrey (Admin uniquement)",
		Type:                     discordgo.ChatApplicationCommand,
		DefaultMemberPermissions: &adminPerm,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionRole,
				Name:        "role",
				Description: "Le rôle à ajouter à Audrey",
				Required:    true,
			},
		},
	}
}

func (*Discord) appCommandRoleRemove() *discordgo.ApplicationCommand {
	adminPerm := int64(discordgo.PermissionAdministrator)
	return &discordgo.ApplicationCommand{
		Name:                     DiscordSlashCommandRoleRemove,
		Description:              "Retirer un rôle à Audrey (Admin uniquement)",
		Type:                     discordgo.ChatApplicationCommand,
		DefaultMemberPermissions: &adminPerm,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionRole,
				Name:        "role",
				Description: "Le rôle à retirer à Audrey",
				Required:    true,
			},
		},
	}
}

func (*Discord) appCommandRoleList() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        DiscordSlashCommandRoleList,
		Description: "Voir les rôles actuels d'Audrey",
		Type:        discordgo.ChatApplicationCommand,
	}
}

// DiscordSessionHandler defines the interface for handling Discord
// sessions. This basically defines methods from `discordgo.Session`
// which are used in this application, to enable testing/mocking.
type DiscordSessionHandler interface {
	// Open creates a websocket connection to Discord
	Open() error

	// Close closes the websocket connection to Discord
	Close() error

	// ChannelMessageSend sends a plain text message to a channel
	ChannelMessageSend(
		channelID string,
		message string,
		opts ...discordgo.RequestOption,
	) (*discordgo.Message, error)

	// ChannelMessageSendEmbed sends an embed to a channel
	ChannelMessageSendEmbed(
		channelID string,
		embed *discordgo.MessageEmbed,
		opts ...discordgo.RequestOption,
	) (*discordgo.Message, error)

	// ChannelTyping broadcasts the typing indicator in a channel
	ChannelTyping(
		channelID string,
		opts ...discordgo.RequestOption,
	) error

	// ApplicationCommandBulkOverwrite overwrites Discord application
	// commands in bulk
	ApplicationCommandBulkOverwrite(
		appID string,
		guildID string,
		commands []*discordgo.ApplicationCommand,
		options ...discordgo.RequestOption,
	) ([]*discordgo.ApplicationCommand, error)

	// InteractionRespond sends an interaction response to Discord
	InteractionRespond(
		interaction *discordgo.Interaction,
		resp *discordgo.InteractionResponse,
		options ...discordgo.RequestOption,
	) error

	// FollowupMessageCreate creates a followup message for an
	// acknowledged interaction
	FollowupMessageCreate(
		interaction *discordgo.Interaction,
		wait bool,
		data *discordgo.WebhookParams,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)

	// GuildMember returns a member of the given guild
	GuildMember(
		guildID string,
		userID string,
		options ...discordgo.RequestOption,
	) (*discordgo.Member, error)

	// GuildMemberRoleAdd grants a role to a guild member
	GuildMemberRoleAdd(
		guildID string,
		userID string,
		roleID string,
		options ...discordgo.RequestOption,
	) error

	// GuildMemberRoleRemove revokes a role from a guild member
	GuildMemberRoleRemove(
		guildID string,
		userID string,
		roleID string,
		options ...discordgo.RequestOption,
	) error

	// GuildRoles returns all roles of the given guild
	GuildRoles(
		guildID string,
		options ...discordgo.RequestOption,
	) ([]*discordgo.Role, error)

	// UpdateListeningStatus sets the bot's "Listening to ..." status
	UpdateListeningStatus(name string) error

	// AddHandler adds a discord gateway event handler
	AddHandler(handler any) func()

	// SetLogLevel modifies the session's log level
	SetLogLevel(lvl slog.Level) error
}

// DiscordSession implements DiscordSessionHandler, wrapping a
// [discordgo.Session](https://pkg.go.dev/github.com/bwmarrin/discordgo#Session)
type DiscordSession struct {
	session *discordgo.Session
	logger  *slog.Logger
}

func (d DiscordSession) Open() error {
	return d.session.Open()
}

func (d DiscordSession) Close() error {
	return d.session.Close()
}

func (d DiscordSession) ChannelMessageSend(
	channelID string,
	message string,
	opts ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	return d.session.ChannelMessageSend(channelID, message, opts...)
}

func (d DiscordSession) ChannelMessageSendEmbed(
	channelID string,
	embed *discordgo.MessageEmbed,
	opts ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	return d.session.ChannelMessageSendEmbed(channelID, embed, opts...)
}

func (d DiscordSession) ChannelTyping(
	channelID string,
	opts ...discordgo.RequestOption,
) error {
	return d.session.ChannelTyping(channelID, opts...)
}

func (d DiscordSession) ApplicationCommandBulkOverwrite(
	appID string,
	guildID string,
	commands []*discordgo.ApplicationCommand,
	options ...discordgo.RequestOption,
) ([]*discordgo.ApplicationCommand, error) {
	created, err := d.session.ApplicationCommandBulkOverwrite(
		appID,
		guildID,
		commands,
		options...,
	)
	if err != nil {
		d.logger.Error("error overwriting discord commands", tint.Err(err))
	}
	return created, err
}

func (d DiscordSession) InteractionRespond(
	interaction *discordgo.Interaction,
	resp *discordgo.InteractionResponse,
	options ...discordgo.RequestOption,
) error {
	return d.session.InteractionRespond(interaction, resp, options...)
}

func (d DiscordSession) FollowupMessageCreate(
	interaction *discordgo.Interaction,
	wait bool,
	data *discordgo.WebhookParams,
	options ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	return d.session.FollowupMessageCreate(interaction, wait, data, options...)
}

func (d DiscordSession) GuildMember(
	guildID string,
	userID string,
	options ...discordgo.RequestOption,
) (*discordgo.Member, error) {
	return d.session.GuildMember(guildID, userID, options...)
}

func (d DiscordSession) GuildMemberRoleAdd(
	guildID string,
	userID string,
	roleID string,
	options ...discordgo.RequestOption,
) error {
	return d.session.GuildMemberRoleAdd(guildID, userID, roleID, options...)
}

func (d DiscordSession) GuildMemberRoleRemove(
	guildID string,
	userID string,
	roleID string,
	options ...discordgo.RequestOption,
) error {
	return d.session.GuildMemberRoleRemove(guildID, userID, roleID, options...)
}

func (d DiscordSession) GuildRoles(
	guildID string,
	options ...discordgo.RequestOption,
) ([]*discordgo.Role, error) {
	return d.session.GuildRoles(guildID, options...)
}

func (d DiscordSession) UpdateListeningStatus(name string) error {
	return d.session.UpdateListeningStatus(name)
}

func (d DiscordSession) AddHandler(handler any) func() {
	return d.session.AddHandler(handler)
}

func (d DiscordSession) SetLogLevel(lvl slog.Level) error {
	switch lvl.Level() {
	case slog.LevelInfo:
		d.session.LogLevel = discordgo.LogInformational
	case slog.LevelWarn:
		d.session.LogLevel = discordgo.LogWarning
	case slog.LevelDebug:
		d.session.LogLevel = discordgo.LogDebug
	case slog.LevelError:
		d.session.LogLevel = discordgo.LogError
	default:
		return fmt.Errorf("invalid log level: %s", lvl)
	}
	return nil
}
