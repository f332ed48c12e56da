package audrey

import (
	"context"
	"log/slog"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "abc", truncate("abcde", 3))
	assert.Equal(t, "", truncate("", 3))
	// rune-safe, not byte-safe
	assert.Equal(t, "ééé", truncate("ééééé", 3))
}

func TestContextLogger(t *testing.T) {
	t.Parallel()
	_, ok := ContextLogger(context.Background())
	assert.False(t, ok)

	logger := slog.Default().With("test", t.Name())
	ctx := WithLogger(context.Background(), logger)
	got, ok := ContextLogger(ctx)
	require.True(t, ok)
	assert.Equal(t, logger, got)
}

func TestMessageMentionsUser(t *testing.T) {
	t.Parallel()
	assert.False(t, messageMentionsUser(nil, "bot"))
	assert.False(t, messageMentionsUser(&discordgo.Message{}, "bot"))

	msg := &discordgo.Message{
		Mentions: []*discordgo.User{{ID: "someone"}, {ID: "bot"}},
	}
	assert.True(t, messageMentionsUser(msg, "bot"))
	assert.False(t, messageMentionsUser(msg, "other"))
}

func TestGetDiscordUser(t *testing.T) {
	t.Parallel()
	user := &discordgo.User{ID: "user1"}

	direct := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{User: user},
	}
	assert.Equal(t, user, getDiscordUser(direct))

	viaMember := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Member: &discordgo.Member{User: user},
		},
	}
	assert.Equal(t, user, getDiscordUser(viaMember))

	neither := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{},
	}
	assert.Nil(t, getDiscordUser(neither))
}

func TestStructToSlogValueRedaction(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig().AI
	cfg.Token = "super-secret-token"

	logged := structToSlogValue(cfg).String()
	assert.NotContains(t, logged, "super-secret-token")
	assert.Contains(t, logged, DefaultAIModel)
}
