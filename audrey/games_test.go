package audrey

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerMatches(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		attempt string
		answer  string
		want    bool
	}{
		{"le mystère", "le mystère", true},
		{"Le Mystère", "le mystère", true},
		{"mystère", "le mystère", true},
		{"  le savoir  ", "le savoir", true},
		{"c'est le secret", "le secret", true},
		{"l'oubli", "le savoir", false},
		{"", "le mystère", false},
		{"la lumière", "le mystère", false},
	} {
		assert.Equalf(
			t, tc.want, answerMatches(tc.attempt, tc.answer),
			"attempt=%q answer=%q", tc.attempt, tc.answer,
		)
	}
}

func TestRiddleGamePose(t *testing.T) {
	t.Parallel()
	sender := &recordingSender{}
	game := newRiddleGame(nil, sender, nil)
	t.Cleanup(func() { stopRiddleTimers(game) })

	assert.True(t, game.Pose("user1", "channel1", riddles[0]))
	assert.False(
		t, game.Pose("user1", "channel2", riddles[1]),
		"one pending riddle per user",
	)
	assert.True(t, game.Pose("user2", "channel1", riddles[1]))
}

func TestRiddleGameTryAnswer(t *testing.T) {
	t.Parallel()
	sender := &recordingSender{}
	game := newRiddleGame(nil, sender, nil)
	t.Cleanup(func() { stopRiddleTimers(game) })

	require.True(t, game.Pose("user1", "channel1", riddles[2]))

	// wrong answer is consumed but keeps the riddle open
	consumed := game.TryAnswer(
		context.Background(),
		InboundMessage{AuthorID: "user1", ChannelID: "channel1", Text: "la vérité"},
	)
	assert.True(t, consumed)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "Essayez encore")

	// right answer resolves it
	consumed = game.TryAnswer(
		context.Background(),
		InboundMessage{AuthorID: "user1", ChannelID: "channel1", Text: "le secret"},
	)
	assert.True(t, consumed)
	require.Len(t, sender.decorated, 1)
	assert.Contains(t, sender.decorated[0], "le secret")

	// nothing pending anymore
	consumed = game.TryAnswer(
		context.Background(),
		InboundMessage{AuthorID: "user1", ChannelID: "channel1", Text: "le secret"},
	)
	assert.False(t, consumed)
}

func TestRiddleGameIgnoresOtherChannel(t *testing.T) {
	t.Parallel()
	sender := &recordingSender{}
	game := newRiddleGame(nil, sender, nil)
	t.Cleanup(func() { stopRiddleTimers(game) })

	require.True(t, game.Pose("user1", "channel1", riddles[0]))

	consumed := game.TryAnswer(
		context.Background(),
		InboundMessage{AuthorID: "user1", ChannelID: "channel2", Text: "le mystère"},
	)
	assert.False(t, consumed, "answers only count in the riddle's channel")
}

func TestRiddleGameExpiry(t *testing.T) {
	t.Parallel()
	sender := &recordingSender{}
	game := newRiddleGame(nil, sender, nil)

	require.True(t, game.Pose("user1", "channel1", riddles[1]))

	game.mu.Lock()
	pending := game.pending["user1"]
	pending.timer.Stop()
	game.mu.Unlock()

	game.expire("user1", pending)

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], riddles[1].Answer, "timeout reveals the answer")

	consumed := game.TryAnswer(
		context.Background(),
		InboundMessage{AuthorID: "user1", ChannelID: "channel1", Text: riddles[1].Answer},
	)
	assert.False(t, consumed, "an expired riddle can't be answered")
}

func TestTarotDeckContent(t *testing.T) {
	t.Parallel()
	require.NotEmpty(t, tarotDeck)
	seen := map[string]bool{}
	for _, card := range tarotDeck {
		assert.NotEmpty(t, card.Name)
		assert.NotEmpty(t, card.Meaning)
		assert.False(t, seen[card.Name], "duplicate card %q", card.Name)
		seen[card.Name] = true
	}
}

func TestRiddleContent(t *testing.T) {
	t.Parallel()
	require.NotEmpty(t, riddles)
	for _, r := range riddles {
		assert.NotEmpty(t, r.Question)
		assert.NotEmpty(t, r.Answer)
		assert.Equal(t, strings.ToLower(r.Answer), r.Answer)
	}
}

func stopRiddleTimers(game *riddleGame) {
	game.mu.Lock()
	defer game.mu.Unlock()
	for _, p := range game.pending {
		p.timer.Stop()
	}
}
