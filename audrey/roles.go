package audrey

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

const roleOption = "role"

// handleRoleAdd grants a role to the bot itself. Guild-only and gated
// to administrators via the command's default member permissions; the
// member check here covers permission overrides.
func (a *Audrey) handleRoleAdd(
	ctx context.Context,
	i *discordgo.InteractionCreate,
	user *discordgo.User,
) {
	a.mutateBotRole(ctx, i, user, true)
}

func (a *Audrey) handleRoleRemove(
	ctx context.Context,
	i *discordgo.InteractionCreate,
	user *discordgo.User,
) {
	a.mutateBotRole(ctx, i, user, false)
}

func (a *Audrey) mutateBotRole(
	ctx context.Context,
	i *discordgo.InteractionCreate,
	user *discordgo.User,
	add bool,
) {
	if i.GuildID == "" {
		a.respondText(
			ctx, i,
			"*Cette commande n'a de sens qu'au sein d'un serveur...*", true,
		)
		return
	}
	if !memberIsAdmin(i.Member) {
		a.respondEmbed(
			ctx, i, &discordgo.MessageEmbed{
				Title: "🚫 Accès refusé",
				Description: "*Seuls les administrateurs peuvent " +
					"modifier mes rôles.*",
				Color: colorRed,
			}, true,
		)
		return
	}

	botUser := a.discord.BotUser()
	if botUser == nil {
		a.respondText(
			ctx, i,
			"*Un instant... Je ne suis pas encore tout à fait présente.*", true,
		)
		return
	}

	opts := discordInteractionOptions(i)
	opt, ok := opts[roleOption]
	if !ok {
		a.logger.Error("role command invoked without role option")
		return
	}
	role := opt.RoleValue(nil, "")

	var err error
	if add {
		err = a.discord.session.GuildMemberRoleAdd(i.GuildID, botUser.ID, role.ID)
	} else {
		err = a.discord.session.GuildMemberRoleRemove(i.GuildID, botUser.ID, role.ID)
	}
	if err != nil {
		a.logger.ErrorContext(
			ctx,
			"error updating bot role",
			tint.Err(err),
			"role_id", role.ID,
			"add", add,
			columnUserID, user.ID,
		)
		description := "*Les forces qui me lient à ce serveur " +
			"refusent cette modification...*"
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Response != nil &&
			restErr.Response.StatusCode == 403 {
			description = "*Je n'ai pas la permission de toucher à ce rôle. " +
				"Mon propre rôle doit être placé au-dessus de celui-ci.*"
		}
		a.respondEmbed(
			ctx, i, &discordgo.MessageEmbed{
				Title:       "🚫 Modification impossible",
				Description: description,
				Color:       colorRed,
			}, true,
		)
		return
	}

	title := "✅ Rôle ajouté"
	verb := "porte désormais"
	if !add {
		title = "✅ Rôle retiré"
		verb = "ne porte plus"
	}
	a.respondEmbed(
		ctx, i, &discordgo.MessageEmbed{
			Title: title,
			Description: fmt.Sprintf(
				"Audrey %s le rôle <@&%s>.", verb, role.ID,
			),
			Color: colorGreen,
		}, false,
	)
}

// handleRoleList shows the roles currently held by the bot in the
// guild the command was invoked in.
func (a *Audrey) handleRoleList(
	ctx context.Context,
	i *discordgo.InteractionCreate,
) {
	if i.GuildID == "" {
		a.respondText(
			ctx, i,
			"*Cette commande n'a de sens qu'au sein d'un serveur...*", true,
		)
		return
	}
	botUser := a.discord.BotUser()
	if botUser == nil {
		a.respondText(
			ctx, i,
			"*Un instant... Je ne suis pas encore tout à fait présente.*", true,
		)
		return
	}

	member, err := a.discord.session.GuildMember(i.GuildID, botUser.ID)
	if err != nil {
		a.logger.ErrorContext(ctx, "error fetching bot member", tint.Err(err))
		a.respondText(
			ctx, i,
			"*Impossible de consulter mes rôles pour le moment...*", true,
		)
		return
	}

	description := "*Je ne porte aucun rôle particulier sur ce serveur.*"
	if len(member.Roles) > 0 {
		mentions := make([]string, 0, len(member.Roles))
		for _, roleID := range member.Roles {
			mentions = append(mentions, fmt.Sprintf("<@&%s>", roleID))
		}
		description = strings.Join(mentions, "\n")
	}

	a.respondEmbed(
		ctx, i, &discordgo.MessageEmbed{
			Title:       "👑 Rôles d'Audrey",
			Description: description,
			Color:       colorPurple,
			Footer: &discordgo.MessageEmbedFooter{
				Text: fmt.Sprintf("%d rôle(s)", len(member.Roles)),
			},
		}, false,
	)
}

func memberIsAdmin(m *discordgo.Member) bool {
	return m != nil && m.Permissions&discordgo.PermissionAdministrator != 0
}
