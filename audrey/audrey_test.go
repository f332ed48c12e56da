package audrey

import (
	"log/slog"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.API.Enabled = false

	bot, err := New(cfg)
	require.NoError(t, err)

	assert.NotNil(t, bot.db)
	assert.NotNil(t, bot.sessions)
	assert.NotNil(t, bot.router)
	assert.NotNil(t, bot.riddles)
	assert.NotNil(t, bot.picker)
	assert.NotNil(t, bot.discord)
	assert.NotNil(t, bot.discord.session)
	assert.Nil(t, bot.api, "keep-alive server disabled")

	// no AI token configured: offline responder selected
	_, ok := bot.responder.(*offlineResponder)
	assert.True(t, ok)
}

func TestNewWithAPIServer(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.AI.Token = "test-ai-token"
	cfg.API.Listen = "127.0.0.1:0"

	bot, err := New(cfg)
	require.NoError(t, err)
	assert.NotNil(t, bot.api)

	_, ok := bot.responder.(*apiResponder)
	assert.True(t, ok)
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	cfg := newTestConfig(t)
	cfg.Discord.Token = ""
	_, err = New(cfg)
	assert.Error(t, err)
}

// mockDiscordSession overrides only the methods a test exercises;
// anything else panics via the embedded nil interface.
type mockDiscordSession struct {
	DiscordSessionHandler
	messages []string
	embeds   []*discordgo.MessageEmbed
	typing   int
}

func (m *mockDiscordSession) ChannelMessageSend(
	_ string,
	message string,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	m.messages = append(m.messages, message)
	return &discordgo.Message{Content: message}, nil
}

func (m *mockDiscordSession) ChannelMessageSendEmbed(
	_ string,
	embed *discordgo.MessageEmbed,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	m.embeds = append(m.embeds, embed)
	return &discordgo.Message{}, nil
}

func (m *mockDiscordSession) ChannelTyping(
	_ string,
	_ ...discordgo.RequestOption,
) error {
	m.typing++
	return nil
}

func TestDiscordSend(t *testing.T) {
	t.Parallel()
	session := &mockDiscordSession{}
	d := &Discord{
		session: session,
		config:  DefaultConfig().Discord,
		logger:  slog.Default(),
	}

	require.NoError(t, d.Send("channel1", "Bonjour, chère âme."))
	require.Len(t, session.messages, 1)
	assert.Equal(t, "Bonjour, chère âme.", session.messages[0])

	require.NoError(
		t,
		d.SendDecorated("channel1", "🎩 Lady Audrey Hall", "texte", colorPurple),
	)
	require.Len(t, session.embeds, 1)
	assert.Equal(t, "🎩 Lady Audrey Hall", session.embeds[0].Title)
	assert.Equal(t, colorPurple, session.embeds[0].Color)

	d.Typing("channel1")
	assert.Equal(t, 1, session.typing)
}
