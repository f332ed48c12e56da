package audrey

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"gorm.io/gorm"
	"log/slog"
)

const riddleAnswerWindow = 30 * time.Second

type tarotCard struct {
	Name    string
	Meaning string
}

var tarotDeck = []tarotCard{
	{
		Name: "Le Mat",
		Meaning: "Un nouveau départ vous attend. " +
			"L'inconnu n'est pas à craindre, mais à embrasser.",
	},
	{
		Name: "La Papesse",
		Meaning: "Les secrets se dévoilent à qui sait attendre. " +
			"Votre intuition est votre meilleure alliée.",
	},
	{
		Name: "L'Empereur",
		Meaning: "La structure et la discipline porteront leurs fruits. " +
			"Prenez les rênes de votre destin.",
	},
	{
		Name: "Le Diable",
		Meaning: "Attention aux chaînes invisibles. " +
			"Ce qui vous tente pourrait bien vous emprisonner.",
	},
	{
		Name: "L'Étoile",
		Meaning: "L'espoir brille dans l'obscurité. " +
			"Vos vœux sont entendus par les forces au-delà du voile.",
	},
	{
		Name: "Le Monde",
		Meaning: "Un cycle s'achève en triomphe. " +
			"L'accomplissement est à portée de main.",
	},
}

type riddle struct {
	Question string
	Answer   string
}

var riddles = []riddle{
	{
		Question: "Je suis partout et nulle part, on me cherche sans me voir, " +
			"et plus on croit me saisir, plus je m'échappe. Qui suis-je ?",
		Answer: "le mystère",
	},
	{
		Question: "On me transmet sans me perdre, on me partage sans me diviser, " +
			"et plus on me donne, plus on me possède. Qui suis-je ?",
		Answer: "le savoir",
	},
	{
		Question: "Je n'existe que lorsqu'on me garde, et je meurs " +
			"dès qu'on me prononce. Qui suis-je ?",
		Answer: "le secret",
	},
}

// handleTarot draws a random card, persists the draw and awards points.
func (a *Audrey) handleTarot(
	ctx context.Context,
	i *discordgo.InteractionCreate,
	user *discordgo.User,
) {
	card := tarotDeck[a.picker.intn(len(tarotDeck))]

	draw := &TarotDraw{
		ID:       uuid.NewString(),
		UserID:   user.ID,
		Username: user.Username,
		Card:     card.Name,
		Meaning:  card.Meaning,
		Points:   pointsTarotDraw,
	}
	if a.db != nil {
		if err := a.db.WithContext(ctx).Create(draw).Error; err != nil {
			a.logger.ErrorContext(ctx, "error saving tarot draw", tint.Err(err))
		}
		if _, err := awardPoints(a.db.WithContext(ctx), user.ID, pointsTarotDraw); err != nil {
			a.logger.ErrorContext(ctx, "error awarding tarot points", tint.Err(err))
		}
	}

	a.respondEmbed(
		ctx, i, &discordgo.MessageEmbed{
			Title: "🔮 Tirage du Tarot",
			Description: fmt.Sprintf(
				"*Les cartes murmurent leur vérité...*\n\n"+
					"**%s**\n\n%s",
				card.Name, card.Meaning,
			),
			Color: colorDarkGold,
			Footer: &discordgo.MessageEmbedFooter{
				Text: fmt.Sprintf("+%d points mystiques", pointsTarotDraw),
			},
		}, false,
	)
}

// handleDevinette poses a riddle and registers a pending answer for
// the invoking user. Answers arrive as plain channel messages and are
// matched by the command layer.
func (a *Audrey) handleDevinette(
	ctx context.Context,
	i *discordgo.InteractionCreate,
	user *discordgo.User,
) {
	r := riddles[a.picker.intn(len(riddles))]

	if !a.riddles.Pose(user.ID, i.ChannelID, r) {
		a.respondText(
			ctx, i,
			"*Patience... Une énigme vous attend déjà. "+
				"Répondez-y avant d'en demander une autre.*",
			true,
		)
		return
	}

	a.respondEmbed(
		ctx, i, &discordgo.MessageEmbed{
			Title: "🧩 Énigme Ancienne",
			Description: fmt.Sprintf(
				"*Écoutez bien, car je ne le dirai qu'une fois...*\n\n**%s**",
				r.Question,
			),
			Color: colorBlue,
			Footer: &discordgo.MessageEmbedFooter{
				Text: fmt.Sprintf(
					"Vous avez %d secondes pour répondre dans ce salon",
					int(riddleAnswerWindow.Seconds()),
				),
			},
		}, false,
	)
}

type pendingRiddle struct {
	channelID string
	riddle    riddle
	timer     *time.Timer
}

// riddleGame tracks at most one open riddle per user. Answers are
// matched against plain messages in the channel the riddle was posed
// in; an unanswered riddle expires after riddleAnswerWindow.
type riddleGame struct {
	mu      sync.Mutex
	pending map[string]*pendingRiddle
	db      *gorm.DB
	sender  ReplySender
	logger  *slog.Logger
}

func newRiddleGame(db *gorm.DB, sender ReplySender, logger *slog.Logger) *riddleGame {
	if logger == nil {
		logger = slog.Default()
	}
	return &riddleGame{
		pending: map[string]*pendingRiddle{},
		db:      db,
		sender:  sender,
		logger:  logger.With(loggerNameKey, "riddles"),
	}
}

// Pose registers a riddle for userID. Returns false if one is already
// pending for that user.
func (g *riddleGame) Pose(userID string, channelID string, r riddle) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.pending[userID]; exists {
		return false
	}
	p := &pendingRiddle{channelID: channelID, riddle: r}
	p.timer = time.AfterFunc(
		riddleAnswerWindow, func() {
			g.expire(userID, p)
		},
	)
	g.pending[userID] = p
	return true
}

func (g *riddleGame) expire(userID string, p *pendingRiddle) {
	g.mu.Lock()
	current, ok := g.pending[userID]
	if !ok || current != p {
		g.mu.Unlock()
		return
	}
	delete(g.pending, userID)
	g.mu.Unlock()

	if err := g.sender.Send(
		p.channelID,
		fmt.Sprintf(
			"*Le temps s'écoule comme le sable...* ⏳\n"+
				"La réponse était : **%s**. "+
				"Les énigmes anciennes ne se laissent pas apprivoiser si facilement.",
			p.riddle.Answer,
		),
	); err != nil {
		g.logger.Error("error sending riddle timeout message", tint.Err(err))
	}
}

// TryAnswer checks whether msg answers a pending riddle. Returns true
// when the message was consumed as an answer attempt (right or wrong).
func (g *riddleGame) TryAnswer(ctx context.Context, msg InboundMessage) bool {
	g.mu.Lock()
	p, ok := g.pending[msg.AuthorID]
	if !ok || p.channelID != msg.ChannelID {
		g.mu.Unlock()
		return false
	}

	if !answerMatches(msg.Text, p.riddle.Answer) {
		g.mu.Unlock()
		if err := g.sender.Send(
			msg.ChannelID,
			"*Hmm... Ce n'est pas la réponse que cherchent les ombres. "+
				"Essayez encore.* 🕯️",
		); err != nil {
			g.logger.ErrorContext(ctx, "error sending riddle miss message", tint.Err(err))
		}
		return true
	}

	p.timer.Stop()
	delete(g.pending, msg.AuthorID)
	g.mu.Unlock()

	if g.db != nil {
		if _, err := awardPoints(
			g.db.WithContext(ctx), msg.AuthorID, pointsRiddleWin,
		); err != nil {
			g.logger.ErrorContext(ctx, "error awarding riddle points", tint.Err(err))
		}
	}

	if err := g.sender.SendDecorated(
		msg.ChannelID,
		"✨ Énigme Résolue !",
		fmt.Sprintf(
			"*Remarquable...* Vous avez percé le voile.\n\n"+
				"La réponse était bien **%s**.\n\n"+
				"**+%d points mystiques**",
			p.riddle.Answer, pointsRiddleWin,
		),
		colorGold,
	); err != nil {
		g.logger.ErrorContext(ctx, "error sending riddle success message", tint.Err(err))
	}
	return true
}

// answerMatches compares an attempt to the expected answer, ignoring
// case, surrounding whitespace and a leading article.
func answerMatches(attempt string, answer string) bool {
	normalize := func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		for _, art := range []string{"le ", "la ", "l'", "les "} {
			s = strings.TrimPrefix(s, art)
		}
		return s
	}
	got := normalize(attempt)
	want := normalize(answer)
	return got == want || strings.Contains(got, want)
}
