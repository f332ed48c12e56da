package audrey

import (
	"context"
	"errors"
	"fmt"
	"github.com/lmittmann/tint"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
	"log/slog"
	"math/rand"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"
)

// FailureKind classifies why a completion attempt produced no usable
// text. None of these ever surface to the end user as an error: each
// maps to an in-character fallback line.
type FailureKind int

const (
	FailureNone FailureKind = iota

	// FailureUnconfigured - no provider credential. Expected steady
	// state, not an error.
	FailureUnconfigured

	// FailureTimeout - the request exceeded its fixed deadline
	FailureTimeout

	// FailureTransport - connection-level failure
	FailureTransport

	// FailureProvider - non-success HTTP status or malformed body
	FailureProvider

	// FailureEmptyCompletion - success status but no usable text
	FailureEmptyCompletion
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureUnconfigured:
		return "unconfigured"
	case FailureTimeout:
		return "timeout"
	case FailureTransport:
		return "transport_error"
	case FailureProvider:
		return "provider_error"
	case FailureEmptyCompletion:
		return "empty_completion"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// providerReply is the normalized outcome of one provider call:
// either text, or a failure kind, never both and never neither.
type providerReply struct {
	text    string
	failure FailureKind
}

// Responder produces one in-character reply for one user utterance.
// history is the recent conversation context, oldest first, not
// including userMessage. Implementations must be safe for concurrent
// use across users and must never return an empty string.
type Responder interface {
	Generate(ctx context.Context, history []Turn, userMessage string) string
}

// chatCompleter is the subset of the go-openai client used here, to
// enable testing/mocking.
type chatCompleter interface {
	CreateChatCompletion(
		ctx context.Context,
		request openai.ChatCompletionRequest,
	) (openai.ChatCompletionResponse, error)
}

// NewResponder selects the active Responder from the configuration,
// once, at startup: a configured token yields the provider-backed
// responder, an empty token the offline one.
func NewResponder(
	cfg *AIConfig,
	logger *slog.Logger,
	httpClient *http.Client,
	rng *rand.Rand,
) Responder {
	if logger == nil {
		logger = slog.Default()
	}
	picker := newLinePicker(rng)

	if cfg.Token == "" {
		logger.Warn("no AI token configured, using offline responder")
		return &offlineResponder{
			logger: logger.With(loggerNameKey, "offline_responder"),
			picker: picker,
		}
	}

	clientCfg := openai.DefaultConfig(cfg.Token)
	clientCfg.BaseURL = cfg.BaseURL
	if httpClient != nil {
		clientCfg.HTTPClient = httpClient
	}

	return &apiResponder{
		client:  openai.NewClientWithConfig(clientCfg),
		cfg:     cfg,
		logger:  logger.With(loggerNameKey, "api_responder"),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		picker:  picker,
	}
}

// apiResponder performs exactly one network call per Generate
// invocation, bounded by the configured timeout, with no retry. It
// holds no mutable per-call state beyond the shared rate limiter.
type apiResponder struct {
	client  chatCompleter
	cfg     *AIConfig
	logger  *slog.Logger
	limiter *rate.Limiter
	picker  *linePicker
}

func (a *apiResponder) Generate(
	ctx context.Context,
	history []Turn,
	userMessage string,
) string {
	reply := a.complete(ctx, history, userMessage)
	text := reply.text
	if reply.failure != FailureNone {
		text = a.fallback(reply.failure)
	}
	return finishReply(text, a.picker)
}

func (a *apiResponder) complete(
	ctx context.Context,
	history []Turn,
	userMessage string,
) providerReply {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(
		messages,
		openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: Persona,
		},
	)
	contextTurns := history
	if len(contextTurns) > a.cfg.ContextTurns {
		contextTurns = contextTurns[len(contextTurns)-a.cfg.ContextTurns:]
	}
	for _, turn := range contextTurns {
		messages = append(
			messages,
			openai.ChatCompletionMessage{
				Role:    string(turn.Role),
				Content: turn.Content,
			},
		)
	}
	messages = append(
		messages,
		openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: userMessage,
		},
	)

	reqCtx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	if err := a.limiter.Wait(reqCtx); err != nil {
		a.logger.WarnContext(reqCtx, "rate limiter wait aborted", tint.Err(err))
		return providerReply{failure: FailureTimeout}
	}

	resp, err := a.client.CreateChatCompletion(
		reqCtx,
		openai.ChatCompletionRequest{
			Model:       a.cfg.Model,
			Messages:    messages,
			MaxTokens:   a.cfg.MaxTokens,
			Temperature: a.cfg.Temperature,
		},
	)
	if err != nil {
		return providerReply{failure: a.classifyError(reqCtx, err)}
	}

	if len(resp.Choices) == 0 {
		a.logger.WarnContext(reqCtx, "provider returned no choices")
		return providerReply{failure: FailureEmptyCompletion}
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		a.logger.WarnContext(reqCtx, "provider returned empty completion")
		return providerReply{failure: FailureEmptyCompletion}
	}
	return providerReply{text: text}
}

// classifyError maps a go-openai error into the failure taxonomy and
// logs the underlying cause for operators.
func (a *apiResponder) classifyError(ctx context.Context, err error) FailureKind {
	var apiErr *openai.APIError
	var reqErr *openai.RequestError

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		a.logger.WarnContext(ctx, "provider request timed out", tint.Err(err))
		return FailureTimeout
	case errors.As(err, &apiErr):
		a.logger.ErrorContext(
			ctx,
			"provider API error",
			"status_code", apiErr.HTTPStatusCode,
			"body", truncate(apiErr.Message, 200),
			tint.Err(err),
		)
		return FailureProvider
	case errors.As(err, &reqErr):
		a.logger.ErrorContext(
			ctx,
			"provider request error",
			"status_code", reqErr.HTTPStatusCode,
			"body", truncate(reqErr.Error(), 200),
			tint.Err(err),
		)
		return FailureProvider
	default:
		a.logger.ErrorContext(ctx, "provider transport error", tint.Err(err))
		return FailureTransport
	}
}

func (a *apiResponder) fallback(kind FailureKind) string {
	if kind == FailureTimeout {
		return timeoutLine
	}
	return a.picker.pick(disturbanceLines)
}

// offlineResponder answers from the canned line pools, keyed by naive
// keyword matching against the prompt. No network I/O ever happens
// here.
type offlineResponder struct {
	logger *slog.Logger
	picker *linePicker
}

func (o *offlineResponder) Generate(
	ctx context.Context,
	_ []Turn,
	userMessage string,
) string {
	pool := classifyPrompt(userMessage)
	o.logger.DebugContext(
		ctx,
		"offline reply",
		"failure_kind", FailureUnconfigured.String(),
		"pool", int(pool),
	)
	return finishReply(o.picker.pick(offlineLines[pool]), o.picker)
}

// classifyPrompt picks the offline pool whose keywords appear in the
// prompt, first matching pool wins in a fixed order.
func classifyPrompt(prompt string) offlinePool {
	lowered := strings.ToLower(prompt)
	for _, pool := range []offlinePool{
		offlinePoolGreeting,
		offlinePoolFarewell,
		offlinePoolTarot,
	} {
		for _, keyword := range offlineKeywords[pool] {
			if strings.Contains(lowered, keyword) {
				return pool
			}
		}
	}
	return offlinePoolDefault
}

// selfReferencePattern matches the provider breaking character with
// "as an AI" style phrasing, in French or English.
var selfReferencePattern = regexp.MustCompile(
	`(?i)(en tant qu'(ia|intelligence artificielle|assistante? (virtuel(le)?|ia))|` +
		`as an ai( language model)?|je suis une (ia|intelligence artificielle))[\s,.:;]*`,
)

// finishReply applies the shape contract every reply converges on,
// offline and configured paths alike: strip self-referential AI
// phrasing, hard-truncate overly long replies, and guarantee the text
// ends with exactly one flourish marker.
func finishReply(text string, picker *linePicker) string {
	text = strings.TrimSpace(selfReferencePattern.ReplaceAllString(text, ""))
	if len([]rune(text)) > replyMaxLength {
		text = strings.TrimSpace(truncate(text, replyMaxLength)) + "…"
	}
	if strings.HasSuffix(text, "*") {
		return text
	}
	return text + "\n\n" + picker.pick(flourishes)
}

// linePicker is a concurrency-safe pseudo-random chooser over fixed
// line pools. The seed is irrelevant to correctness but injectable
// for deterministic tests.
type linePicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newLinePicker(rng *rand.Rand) *linePicker {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &linePicker{rng: rng}
}

func (p *linePicker) pick(lines []string) string {
	return lines[p.intn(len(lines))]
}

// intn is the guarded random index used for every pool draw sharing
// this picker; the games use it too, so nothing touches the
// underlying rng unsynchronized.
func (p *linePicker) intn(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Intn(n)
}
