package audrey

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// mockCompleter implements chatCompleter without any network I/O,
// recording the request it was given.
type mockCompleter struct {
	response openai.ChatCompletionResponse
	err      error
	calls    int
	request  openai.ChatCompletionRequest
}

func (m *mockCompleter) CreateChatCompletion(
	_ context.Context,
	req openai.ChatCompletionRequest,
) (openai.ChatCompletionResponse, error) {
	m.calls++
	m.request = req
	return m.response, m.err
}

func newTestResponder(t testing.TB, completer chatCompleter) *apiResponder {
	t.Helper()
	cfg := DefaultConfig().AI
	cfg.Token = "test-token"
	return &apiResponder{
		client:  completer,
		cfg:     cfg,
		logger:  slog.Default(),
		limiter: rate.NewLimiter(rate.Inf, 1),
		picker:  newLinePicker(rand.New(rand.NewSource(1))),
	}
}

func completionResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestAPIResponderSuccess(t *testing.T) {
	t.Parallel()
	completer := &mockCompleter{
		response: completionResponse("Quelle charmante question, chère âme."),
	}
	responder := newTestResponder(t, completer)

	reply := responder.Generate(context.Background(), nil, "Bonjour Audrey")

	assert.Equal(t, 1, completer.calls)
	assert.Contains(t, reply, "Quelle charmante question")
	assert.True(t, strings.HasSuffix(reply, "*"), "reply ends with a flourish: %q", reply)

	req := completer.request
	assert.Equal(t, DefaultAIModel, req.Model)
	assert.Equal(t, DefaultAIMaxTokens, req.MaxTokens)
	assert.Equal(t, DefaultAITemperature, req.Temperature)

	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, Persona, req.Messages[0].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[1].Role)
	assert.Equal(t, "Bonjour Audrey", req.Messages[1].Content)
}

func TestAPIResponderContextWindow(t *testing.T) {
	t.Parallel()
	completer := &mockCompleter{response: completionResponse("Bien sûr.")}
	responder := newTestResponder(t, completer)

	history := make([]Turn, 0, 10)
	for i := 0; i < 5; i++ {
		history = append(
			history,
			Turn{Role: TurnRoleUser, Content: fmt.Sprintf("question %d", i)},
			Turn{Role: TurnRoleAssistant, Content: fmt.Sprintf("réponse %d", i)},
		)
	}
	_ = responder.Generate(context.Background(), history, "dernière question")

	// persona + last 6 turns + new user message
	req := completer.request
	require.Len(t, req.Messages, 2+DefaultAIContextTurns)
	assert.Equal(t, "question 2", req.Messages[1].Content)
	assert.Equal(t, "réponse 4", req.Messages[len(req.Messages)-2].Content)
	assert.Equal(t, "dernière question", req.Messages[len(req.Messages)-1].Content)
}

func TestAPIResponderTimeout(t *testing.T) {
	t.Parallel()
	completer := &mockCompleter{
		err: fmt.Errorf("request aborted: %w", context.DeadlineExceeded),
	}
	responder := newTestResponder(t, completer)

	reply := responder.Generate(context.Background(), nil, "Bonjour")
	assert.Contains(t, reply, timeoutLine)
	assert.True(t, strings.HasSuffix(reply, "*"))
}

func TestAPIResponderProviderError(t *testing.T) {
	t.Parallel()
	completer := &mockCompleter{
		err: &openai.APIError{
			HTTPStatusCode: 500,
			Message:        "internal server error",
		},
	}
	responder := newTestResponder(t, completer)

	reply := responder.Generate(context.Background(), nil, "Bonjour")
	assertDisturbanceReply(t, reply)
}

func TestAPIResponderTransportError(t *testing.T) {
	t.Parallel()
	completer := &mockCompleter{err: fmt.Errorf("connection refused")}
	responder := newTestResponder(t, completer)

	reply := responder.Generate(context.Background(), nil, "Bonjour")
	assertDisturbanceReply(t, reply)
}

func TestAPIResponderEmptyCompletion(t *testing.T) {
	t.Parallel()
	for name, response := range map[string]openai.ChatCompletionResponse{
		"no_choices":    {},
		"blank_content": completionResponse("   "),
	} {
		t.Run(
			name, func(t *testing.T) {
				completer := &mockCompleter{response: response}
				responder := newTestResponder(t, completer)

				reply := responder.Generate(context.Background(), nil, "Bonjour")
				assertDisturbanceReply(t, reply)
			},
		)
	}
}

func assertDisturbanceReply(t testing.TB, reply string) {
	t.Helper()
	found := false
	for _, line := range disturbanceLines {
		if strings.Contains(reply, line) {
			found = true
			break
		}
	}
	assert.True(t, found, "reply should come from the disturbance pool: %q", reply)
	assert.True(t, strings.HasSuffix(reply, "*"))
}

func TestNewResponderOffline(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig().AI
	cfg.Token = ""

	responder := NewResponder(cfg, slog.Default(), nil, nil)
	_, ok := responder.(*offlineResponder)
	assert.True(t, ok, "empty token selects the offline responder")
}

func TestNewResponderConfigured(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig().AI
	cfg.Token = "test-token"

	responder := NewResponder(cfg, slog.Default(), nil, nil)
	_, ok := responder.(*apiResponder)
	assert.True(t, ok)
}

func TestClassifyPrompt(t *testing.T) {
	t.Parallel()
	for prompt, expected := range map[string]offlinePool{
		"Bonjour Audrey !":            offlinePoolGreeting,
		"BONSOIR madame":              offlinePoolGreeting,
		"au revoir, à demain":         offlinePoolFarewell,
		"tire-moi une carte de tarot": offlinePoolTarot,
		"que penses-tu du destin ?":   offlinePoolTarot,
		"quel temps fait-il ?":        offlinePoolDefault,
	} {
		assert.Equalf(
			t, expected, classifyPrompt(prompt),
			"prompt: %q", prompt,
		)
	}
}

func TestOfflineResponderPools(t *testing.T) {
	t.Parallel()
	responder := &offlineResponder{
		logger: slog.Default(),
		picker: newLinePicker(rand.New(rand.NewSource(1))),
	}

	reply := responder.Generate(context.Background(), nil, "Bonjour Audrey")
	found := false
	for _, line := range offlineLines[offlinePoolGreeting] {
		if strings.Contains(reply, line) {
			found = true
			break
		}
	}
	assert.True(t, found, "greeting prompt answered from the greeting pool: %q", reply)
	assert.True(t, strings.HasSuffix(reply, "*"))
}

func TestFinishReplyStripsSelfReference(t *testing.T) {
	t.Parallel()
	picker := newLinePicker(rand.New(rand.NewSource(1)))

	for input, forbidden := range map[string]string{
		"En tant qu'IA, je ne peux pas prédire l'avenir.":      "En tant qu'IA",
		"As an AI language model, allow me to answer.":         "As an AI",
		"Je suis une intelligence artificielle, mais voyons..": "intelligence artificielle",
	} {
		out := finishReply(input, picker)
		assert.NotContains(t, out, forbidden)
		assert.NotEmpty(t, strings.TrimSpace(out))
	}
}

func TestFinishReplyTruncates(t *testing.T) {
	t.Parallel()
	picker := newLinePicker(rand.New(rand.NewSource(1)))

	long := strings.Repeat("é", replyMaxLength+500)
	out := finishReply(long, picker)

	assert.Contains(t, out, "…")
	assert.LessOrEqual(t, len([]rune(out)), discordMaxMessageLength)
	assert.True(t, strings.HasSuffix(out, "*"))
}

func TestFinishReplyKeepsExistingFlourish(t *testing.T) {
	t.Parallel()
	picker := newLinePicker(rand.New(rand.NewSource(1)))

	in := "Bonne journée.\n\n*Elle sourit.*"
	out := finishReply(in, picker)
	assert.Equal(t, in, out, "a reply already ending in a flourish is untouched")
}

func TestLinePickerConcurrentUse(t *testing.T) {
	t.Parallel()
	picker := newLinePicker(rand.New(rand.NewSource(1)))
	responder := &offlineResponder{logger: slog.Default(), picker: picker}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			reply := responder.Generate(context.Background(), nil, "Bonjour")
			assert.NotEmpty(t, reply)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			n := picker.intn(len(tarotDeck))
			assert.GreaterOrEqual(t, n, 0)
			assert.Less(t, n, len(tarotDeck))
		}
	}()
	wg.Wait()
}

func TestFailureKindString(t *testing.T) {
	t.Parallel()
	for kind, expected := range map[FailureKind]string{
		FailureNone:            "none",
		FailureUnconfigured:    "unconfigured",
		FailureTimeout:         "timeout",
		FailureTransport:       "transport_error",
		FailureProvider:        "provider_error",
		FailureEmptyCompletion: "empty_completion",
	} {
		assert.Equal(t, expected, kind.String())
	}
}
