package audrey

// Persona and canned-reply content. Everything the bot says when it
// isn't relaying a provider completion lives here, so lines are never
// re-specified at call sites.

// Persona is the system instruction sent with every completion
// request. Constant for the process lifetime.
const Persona = `Tu es Audrey Hall, une noble de la couronne d'Outwall dans l'univers de "Lord of the Mysteries".
Tu es sur la Voie du Lecteur (Pathways), membre du Club Tarot sous le nom de "Justice".
Tu es élégante, raffinée, mystérieuse, et tu parles avec un langage victorien noble.
Tu dois répondre en français, avec grâce, sagesse, et une touche de mysticisme.
Tu connais le tarot, l'ésotérisme, et tu es curieuse des affaires mystiques.
Tu es gentille, mais tu gardes une distance noble.

Règles importantes :
1. Réponds toujours en français
2. Utilise un langage noble et raffiné
3. Sois mystérieuse et profonde
4. Référence parfois le tarot ou les mystères
5. Garde une conversation naturelle et fluide
6. Adapte-toi au contexte de la discussion`

// flourishes are trailing in-character action lines. Every reply the
// bot produces ends with exactly one of these (or one the provider
// wrote itself, detected by the trailing asterisk).
var flourishes = []string{
	"*Elle incline gracieusement la tête.*",
	"*Ses yeux émeraude brillent d'une lueur mystérieuse.*",
	"*Elle effleure une carte de tarot du bout des doigts.*",
	"*Un sourire énigmatique se dessine sur ses lèvres.*",
	"*Elle ajuste délicatement son gant de dentelle.*",
}

// offlinePool groups canned lines by the kind of prompt they answer.
type offlinePool int

const (
	offlinePoolDefault offlinePool = iota
	offlinePoolGreeting
	offlinePoolFarewell
	offlinePoolTarot
)

var offlineKeywords = map[offlinePool][]string{
	offlinePoolGreeting: {"bonjour", "bonsoir", "salut", "hello", "coucou"},
	offlinePoolFarewell: {"au revoir", "adieu", "bonne nuit", "à bientôt"},
	offlinePoolTarot:    {"tarot", "carte", "divination", "destin"},
}

var offlineLines = map[offlinePool][]string{
	offlinePoolGreeting: {
		"Bonjour, chère âme. Quel plaisir de croiser votre chemin en ce jour.",
		"Soyez la bienvenue. Les salons d'Outwall vous ouvrent leurs portes.",
		"Mes salutations distinguées. Que les mystères vous soient favorables.",
	},
	offlinePoolFarewell: {
		"Que votre route soit éclairée par l'étoile du matin. À bientôt.",
		"Nos chemins se séparent ici, mais les fils du destin se recroiseront.",
	},
	offlinePoolTarot: {
		"Les cartes murmurent, mais leur voix m'échappe en cet instant. Revenez me voir.",
		"Le tarot garde ses secrets aujourd'hui. La Papesse m'invite à la patience.",
	},
	offlinePoolDefault: {
		"Mes pensées voyagent au-delà du voile en ce moment. Parlez, je vous écoute malgré tout.",
		"Voilà une question digne du Club Tarot. Laissez-moi y méditer quelque temps.",
		"Les mystères ne se livrent qu'à ceux qui savent attendre, chère âme.",
	},
}

// disturbanceLines are returned when a configured provider call fails,
// whatever the cause. The caller never sees the underlying error.
var disturbanceLines = []string{
	"Je sens une perturbation dans les fils du destin... Les étoiles ne sont pas alignées pour que je réponde.",
	"Les ombres du réseau m'empêchent de répondre... Veuillez excuser cette interruption.",
	"Un voile s'est posé entre nos deux mondes. Accordez-moi un instant, puis reposez votre question.",
}

// timeoutLine is the fallback used specifically when the provider call
// exceeds its deadline.
const timeoutLine = "Oh chère amie, la connexion aux royaumes mystiques prend plus de temps que prévu..."

const mentionNoSessionReply = "Pour converser avec moi, utilisez la commande `/parler` pour démarrer une conversation.\n\n" +
	"Ensuite, vous pourrez me parler normalement dans ce salon jusqu'à ce que vous utilisiez `/stop`."

const (
	stopFarewellReply  = "🕊️ Notre conversation prend fin ici. Que les mystères vous accompagnent, chère amie..."
	stopNothingReply   = "💭 Nous ne sommes pas en train de converser actuellement."
	statutNothingReply = "💭 Aucune conversation active. Utilisez `/parler` pour en démarrer une."
)
