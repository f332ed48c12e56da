package audrey

import (
	"context"
	"github.com/lmittmann/tint"
	"log/slog"
	"strings"
)

// commandPrefixes are the prefixes that mark a message as a command
// invocation rather than dialogue, even inside an active
// conversation.
var commandPrefixes = []string{"/", "!"}

// InboundMessage is the boundary shape of one inbound chat event, as
// the router sees it.
type InboundMessage struct {
	AuthorID     string
	ChannelID    string
	Text         string
	IsSelf       bool
	IsBotMention bool
}

func (m InboundMessage) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String(columnUserID, m.AuthorID),
		slog.String("channel_id", m.ChannelID),
		slog.String("content", truncate(m.Text, 80)),
		slog.Bool("is_self", m.IsSelf),
		slog.Bool("is_bot_mention", m.IsBotMention),
	)
}

// ReplySender is the outbound reply sink. Dialogue replies go through
// Send as plain text; command-path replies go through SendDecorated
// as an embed.
type ReplySender interface {
	Send(channelID string, text string) error
	SendDecorated(channelID string, title string, text string, color int) error
	Typing(channelID string)
}

// CommandDispatcher receives every inbound message the router decides
// is not dialogue (legacy prefix commands, riddle answers).
type CommandDispatcher interface {
	Dispatch(ctx context.Context, msg InboundMessage)
}

// MessageRouter classifies every inbound chat message exactly once
// and drives the dialogue path: history append, completion call,
// history append, plain reply.
type MessageRouter struct {
	sessions  *SessionStore
	responder Responder
	sender    ReplySender
	commands  CommandDispatcher
	logger    *slog.Logger
}

func NewMessageRouter(
	sessions *SessionStore,
	responder Responder,
	sender ReplySender,
	commands CommandDispatcher,
	logger *slog.Logger,
) *MessageRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageRouter{
		sessions:  sessions,
		responder: responder,
		sender:    sender,
		commands:  commands,
		logger:    logger.With(loggerNameKey, "router"),
	}
}

// Route classifies msg with fixed precedence, first match wins:
//
//  1. the bot's own messages are discarded
//  2. active session in this channel: command prefixes go to the
//     dispatcher, everything else continues the dialogue
//  3. a mention without a session in this channel gets a one-shot
//     pointer at /parler, and nothing else happens
//  4. everything else goes to the dispatcher unchanged
func (r *MessageRouter) Route(ctx context.Context, msg InboundMessage) {
	if msg.IsSelf {
		return
	}

	if r.sessions.IsActiveInChannel(msg.AuthorID, msg.ChannelID) {
		if isCommandInvocation(msg.Text) {
			r.commands.Dispatch(ctx, msg)
			return
		}
		r.continueDialogue(ctx, msg)
		return
	}

	if msg.IsBotMention {
		r.logger.InfoContext(ctx, "mention without session in channel", "message", msg)
		if err := r.sender.SendDecorated(
			msg.ChannelID,
			"🎩 Lady Audrey Hall",
			mentionNoSessionReply,
			colorPurple,
		); err != nil {
			r.logger.ErrorContext(ctx, "error sending mention reply", tint.Err(err))
		}
		return
	}

	r.commands.Dispatch(ctx, msg)
}

// continueDialogue holds the user's lock across the whole
// append/generate/append sequence, so overlapping messages from one
// user can't interleave history writes.
func (r *MessageRouter) continueDialogue(ctx context.Context, msg InboundMessage) {
	lock := r.sessions.UserLock(msg.AuthorID)
	lock.Lock()
	defer lock.Unlock()

	// the session may have been stopped or rebound while waiting on
	// the lock
	if !r.sessions.IsActiveInChannel(msg.AuthorID, msg.ChannelID) {
		r.commands.Dispatch(ctx, msg)
		return
	}

	history := r.sessions.History(msg.AuthorID)
	r.sessions.AppendTurn(msg.AuthorID, Turn{Role: TurnRoleUser, Content: msg.Text})

	r.sender.Typing(msg.ChannelID)
	reply := r.responder.Generate(ctx, history, msg.Text)
	r.sessions.AppendTurn(msg.AuthorID, Turn{Role: TurnRoleAssistant, Content: reply})

	if err := r.sender.Send(msg.ChannelID, reply); err != nil {
		r.logger.ErrorContext(
			ctx,
			"error sending dialogue reply",
			tint.Err(err),
			"message", msg,
		)
	}
}

func isCommandInvocation(text string) bool {
	for _, prefix := range commandPrefixes {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}
