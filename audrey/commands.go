package audrey

import (
	"context"
	"fmt"
	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"log/slog"
)

// handlerInteractionCreate dispatches slash command interactions by
// command name. Unknown commands are logged and ignored. Each
// interaction runs on its own goroutine, tracked for the shutdown
// drain: handlers do slow work (the completion call, gorm writes) and
// discordgo invokes gateway handlers inline, so handling one in place
// would stall every subsequent event.
func (a *Audrey) handlerInteractionCreate() func(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
) {
	return func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		a.eventsInProgress.Add(1)
		go func() {
			defer a.eventsInProgress.Done()
			a.handleInteraction(WithLogger(context.Background(), a.logger), i)
		}()
	}
}

func (a *Audrey) handleInteraction(
	ctx context.Context,
	i *discordgo.InteractionCreate,
) {
	user := getDiscordUser(i)
	if user == nil {
		a.logger.Warn("couldn't find user in interaction", "interaction_id", i.ID)
		return
	}

	name := i.ApplicationCommandData().Name
	a.logger.Info(
		"got interaction",
		"command", name,
		columnUserID, user.ID,
		"channel_id", i.ChannelID,
	)

	switch name {
	case DiscordSlashCommandParler:
		a.handleParler(ctx, i, user)
	case DiscordSlashCommandStop:
		a.handleStop(ctx, i, user)
	case DiscordSlashCommandStatut:
		a.handleStatut(ctx, i, user)
	case DiscordSlashCommandAide:
		a.handleAide(ctx, i, user)
	case DiscordSlashCommandTarot:
		a.handleTarot(ctx, i, user)
	case DiscordSlashCommandDevinette:
		a.handleDevinette(ctx, i, user)
	case DiscordSlashCommandRoleAdd:
		a.handleRoleAdd(ctx, i, user)
	case DiscordSlashCommandRoleRemove:
		a.handleRoleRemove(ctx, i, user)
	case DiscordSlashCommandRoleList:
		a.handleRoleList(ctx, i)
	default:
		a.logger.Warn("unknown command", "command", name)
	}
}

// handleParler starts (or restarts) a conversation. The AI reply is
// sent as a plain followup; a decorated info embed follows it, so the
// dialogue itself stays undecorated.
func (a *Audrey) handleParler(
	ctx context.Context,
	i *discordgo.InteractionCreate,
	user *discordgo.User,
) {
	opts := discordInteractionOptions(i)
	opt, ok := opts[parlerMessageOption]
	if !ok {
		a.logger.Error("parler invoked without message option")
		return
	}
	message := opt.StringValue()

	if err := a.interactionDefer(i, false); err != nil {
		a.logger.ErrorContext(ctx, "error acknowledging interaction", tint.Err(err))
		return
	}

	lock := a.sessions.UserLock(user.ID)
	lock.Lock()
	defer lock.Unlock()

	// Start always resets, even when a session is active elsewhere
	a.sessions.Start(user.ID, i.ChannelID, message)
	reply := a.responder.Generate(ctx, nil, message)
	a.sessions.AppendTurn(user.ID, Turn{Role: TurnRoleAssistant, Content: reply})

	a.followupText(ctx, i, reply, false)

	displayName := user.GlobalName
	if displayName == "" {
		displayName = user.Username
	}
	if err := a.discord.SendDecorated(
		i.ChannelID,
		"💬 Conversation démarrée",
		fmt.Sprintf(
			"**%s**, notre conversation est maintenant active !\n\n"+
				"Vous pouvez me parler normalement dans ce salon.\n"+
				"Je répondrai à vos messages jusqu'à ce que vous utilisiez `/stop`.\n\n"+
				"*Pour l'instant, je réponds uniquement dans ce salon de discussion.*",
			displayName,
		),
		colorGreen,
	); err != nil {
		a.logger.ErrorContext(ctx, "error sending conversation info embed", tint.Err(err))
	}
}

func (a *Audrey) handleStop(
	ctx context.Context,
	i *discordgo.InteractionCreate,
	user *discordgo.User,
) {
	if !a.sessions.Stop(user.ID) {
		a.respondText(ctx, i, stopNothingReply, true)
		return
	}

	a.respondText(ctx, i, stopFarewellReply, false)
	a.followupEmbed(
		ctx, i, &discordgo.MessageEmbed{
			Title: "Conversation terminée",
			Description: "Notre dialogue s'achève ici. Les échos de nos paroles " +
				"se dissipent dans le néant...\n\n" +
				"Utilisez à nouveau `/parler` si vous souhaitez converser à nouveau.",
			Color: colorDarkPurple,
		}, true,
	)
}

func (a *Audrey) handleStatut(
	ctx context.Context,
	i *discordgo.InteractionCreate,
	user *discordgo.User,
) {
	session, ok := a.sessions.Get(user.ID)
	if !ok || !session.Active {
		a.respondText(ctx, i, statutNothingReply, true)
		return
	}

	displayName := user.GlobalName
	if displayName == "" {
		displayName = user.Username
	}
	a.respondEmbed(
		ctx, i, &discordgo.MessageEmbed{
			Title:       "📊 Statut de la Conversation",
			Description: fmt.Sprintf("**Conversation active** avec %s", displayName),
			Color:       colorGreen,
			Fields: []*discordgo.MessageEmbedField{
				{
					Name:   "Salon",
					Value:  fmt.Sprintf("<#%s>", session.ChannelID),
					Inline: true,
				},
				{
					Name:   "Messages échangés",
					Value:  fmt.Sprintf("%d", session.ExchangedMessages()),
					Inline: true,
				},
				{Name: "Statut", Value: "✅ Active", Inline: true},
			},
			Footer: &discordgo.MessageEmbedFooter{
				Text: "Utilisez /stop pour terminer la conversation",
			},
		}, false,
	)
}

func (a *Audrey) handleAide(
	ctx context.Context,
	i *discordgo.InteractionCreate,
	user *discordgo.User,
) {
	session, ok := a.sessions.Get(user.ID)
	active := ok && session.Active

	embed := &discordgo.MessageEmbed{
		Title:       "🎩 Services de Lady Audrey Hall",
		Description: "Voici les mystères que je peux vous révéler :",
		Color:       colorPurple,
	}

	if active {
		embed.Fields = append(
			embed.Fields, &discordgo.MessageEmbedField{
				Name: "💬 Conversation Active",
				Value: fmt.Sprintf(
					"✅ **Conversation en cours dans <#%s>**\n"+
						"Parlez-moi normalement dans ce salon.\n"+
						"Utilisez `/stop` pour terminer.",
					session.ChannelID,
				),
			},
		)
	} else {
		embed.Fields = append(
			embed.Fields, &discordgo.MessageEmbedField{
				Name: "💬 Démarrer une Conversation",
				Value: "**`/parler [message]`** - Démarrer une conversation avec moi\n" +
					"Je répondrai à vos messages dans le salon jusqu'à `/stop`",
			},
		)
	}

	embed.Fields = append(
		embed.Fields,
		&discordgo.MessageEmbedField{
			Name: "🎮 Mini-Jeux Mystiques",
			Value: "**`/tarot`** - Tirer une carte du tarot\n" +
				"**`/devinette`** - Résoudre une énigme ancienne",
		},
		&discordgo.MessageEmbedField{
			Name: "👑 Gestion des Rôles (Admin)",
			Value: "**`/ajouter_role [rôle]`** - Ajouter un rôle à Audrey\n" +
				"**`/retirer_role [rôle]`** - Retirer un rôle à Audrey\n" +
				"**`/roles_audrey`** - Voir mes rôles actuels",
		},
		&discordgo.MessageEmbedField{
			Name: "⚙️ Gestion Conversation",
			Value: "**`/stop`** - Terminer la conversation en cours\n" +
				"**`/aide`** - Voir ce message d'aide\n" +
				"**`/statut`** - Voir le statut de la conversation",
		},
	)

	if active {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: "Conversation active • Utilisez /stop pour terminer",
		}
	} else {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: "Utilisez /parler pour démarrer une conversation",
		}
	}

	a.respondEmbed(ctx, i, embed, false)
}

// interactionDefer acknowledges an interaction so a followup can be
// sent after slower work (the completion call).
func (a *Audrey) interactionDefer(i *discordgo.InteractionCreate, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return a.discord.session.InteractionRespond(
		i.Interaction,
		&discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
			Data: data,
		},
	)
}

func (a *Audrey) respondText(
	ctx context.Context,
	i *discordgo.InteractionCreate,
	content string,
	ephemeral bool,
) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	if err := a.discord.session.InteractionRespond(
		i.Interaction,
		&discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: data,
		},
	); err != nil {
		a.logger.ErrorContext(
			ctx,
			"error responding to interaction",
			tint.Err(err),
			slog.String("content", truncate(content, 80)),
		)
	}
}

func (a *Audrey) respondEmbed(
	ctx context.Context,
	i *discordgo.InteractionCreate,
	embed *discordgo.MessageEmbed,
	ephemeral bool,
) {
	data := &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	if err := a.discord.session.InteractionRespond(
		i.Interaction,
		&discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: data,
		},
	); err != nil {
		a.logger.ErrorContext(ctx, "error responding to interaction", tint.Err(err))
	}
}

func (a *Audrey) followupText(
	ctx context.Context,
	i *discordgo.InteractionCreate,
	content string,
	ephemeral bool,
) {
	params := &discordgo.WebhookParams{Content: content}
	if ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	if _, err := a.discord.session.FollowupMessageCreate(
		i.Interaction, true, params,
	); err != nil {
		a.logger.ErrorContext(ctx, "error sending followup", tint.Err(err))
	}
}

func (a *Audrey) followupEmbed(
	ctx context.Context,
	i *discordgo.InteractionCreate,
	embed *discordgo.MessageEmbed,
	ephemeral bool,
) {
	params := &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	}
	if ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	if _, err := a.discord.session.FollowupMessageCreate(
		i.Interaction, true, params,
	); err != nil {
		a.logger.ErrorContext(ctx, "error sending followup embed", tint.Err(err))
	}
}

// commandLayer is the dispatcher handed to the MessageRouter for
// messages classified as non-dialogue. Riddle answers are resolved
// here; legacy prefix commands fall through untouched.
type commandLayer struct {
	riddles *riddleGame
	logger  *slog.Logger
}

func (c *commandLayer) Dispatch(ctx context.Context, msg InboundMessage) {
	if c.riddles != nil && c.riddles.TryAnswer(ctx, msg) {
		return
	}
	logger, ok := ContextLogger(ctx)
	if !ok || logger == nil {
		logger = c.logger
	}
	logger.DebugContext(ctx, "message not handled by command layer", "message", msg)
}
