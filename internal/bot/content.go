package bot

// Static content tables: prompts, canned replies, link lists, welcome text.

const (
	helpText = `Hallo! Ich bin der Stammtisch-Bot. 🤖

Verfügbare Befehle:
/meetup - Neues Meetup zur Freigabe vorschlagen
/meetup_delete - Löschung eines Meetups beantragen
/meetups - Kommende Meetups anzeigen
/links - Nützliche Links der Community
/cancel - Laufenden Vorgang abbrechen`

	unknownCommandText = "Unbekannter Befehl. Mit /start siehst du alle verfügbaren Befehle."

	welcomeText = `Willkommen in der Community! 🎉

Hier dreht sich alles um Bitcoin. Mit /meetups siehst du die nächsten Treffen, mit /links findest du unsere wichtigsten Ressourcen.`

	cancelText          = "Okay, abgebrochen. Du kannst jederzeit mit /meetup neu starten."
	nothingToCancelText = "Es läuft gerade kein Vorgang."

	promptTitle       = "Wie soll das Meetup heissen?"
	promptDate        = "An welchem Datum findet es statt? (JJJJ-MM-TT, z.B. 2025-03-10)"
	promptTime        = "Um welche Uhrzeit beginnt es? (HH:MM, z.B. 19:00)"
	promptLocation    = "Wo findet es statt? (Adresse oder Ort)"
	promptDescription = "Beschreibe das Meetup in ein bis zwei Sätzen."
	promptOptions     = "Möchtest du noch optionale Angaben ergänzen?"
	promptEndDate     = "An welchem Datum endet es? (JJJJ-MM-TT)"
	promptEndTime     = "Um welche Uhrzeit endet es? (HH:MM)"
	promptImage       = "Schicke mir die URL eines Bildes für das Meetup."
	promptDeleteLink  = "Schicke mir den nevent- oder note-Link des Meetups, das gelöscht werden soll."

	errBadDate      = "❌ Ungültiges Datumsformat. Bitte nutze JJJJ-MM-TT.\n\nBeispiel: 2025-03-10"
	errBadTime      = "❌ Ungültige Uhrzeit. Bitte nutze HH:MM im 24-Stunden-Format.\n\nBeispiel: 19:00"
	errBadImageURL  = "❌ Das sieht nicht nach einer gültigen Bild-URL aus. Bitte schicke eine http(s)-URL."
	errLocationMiss = "Ich konnte diesen Ort nicht finden. Bitte versuche es mit einer genaueren Angabe."
	errBadEventLink = "Das konnte ich nicht entschlüsseln. Bitte schicke einen nevent1...- oder note1...-Link."
	errEventMissing = "Ich konnte dieses Meetup auf keinem Relay finden. Bitte prüfe den Link."

	alreadySubmittedText = "Dein Antrag wurde bereits eingereicht und wartet auf eine Entscheidung."
	submittedText        = "✅ Danke! Dein Meetup wurde zur Freigabe eingereicht. Du bekommst Bescheid, sobald entschieden wurde."
	approvedText         = "🎉 Dein Meetup wurde freigegeben und veröffentlicht!\n\n%s"
	rejectedText         = "Dein Antrag wurde leider abgelehnt. Bei Fragen melde dich bei einem Administrator."
	publishFailedText    = "Dein Antrag wurde freigegeben, aber die Veröffentlichung ist fehlgeschlagen. Bitte kontaktiere einen Administrator."
	deleteSubmittedText  = "✅ Danke! Der Löschantrag wurde zur Freigabe eingereicht."
	deleteApprovedText   = "Das Meetup wurde als abgesagt markiert."

	alreadyDecidedText = "Bereits entschieden."

	offtopicReply = "Hier gibt's nur Bitcoin. 🟠 Für alles andere gibt es andere Gruppen."
)

// communityLinks is the static link table rendered by /links.
var communityLinks = []struct {
	Label string
	URL   string
}{
	{"Einundzwanzig Portal", "https://einundzwanzig.space"},
	{"Meetup-Kalender", "https://www.meetstr.com"},
	{"Bitcoin Whitepaper", "https://bitcoin.org/bitcoin.pdf"},
	{"Mempool Explorer", "https://mempool.space"},
	{"Lightning-Einstieg", "https://lightning.network"},
}

// offtopicTerms triggers the canned moderation reply. Matching is
// case-insensitive on word boundaries.
var offtopicTerms = []string{
	"shitcoin",
	"altcoin",
	"dogecoin",
	"ethereum",
	"ripple",
	"solana",
}

// trackingParams are stripped from shared URLs.
var trackingParams = []string{
	"utm_source",
	"utm_medium",
	"utm_campaign",
	"utm_term",
	"utm_content",
	"fbclid",
	"gclid",
	"igsh",
	"si",
	"ref",
}
