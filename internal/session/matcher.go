package session

import (
	"strings"

	"github.com/rs/zerolog"

	"live-speech-translator/internal/language"
	"live-speech-translator/internal/models"
	"live-speech-translator/internal/observability/logging"
	"live-speech-translator/internal/observability/metrics"
)

// bindKind classifies how a translation event attached to the transcript.
type bindKind int

const (
	// bindNone means the event matched nothing and was discarded.
	bindNone bindKind = iota
	// bindFinal is an authoritative bind to a final entry; it is
	// speech-eligible.
	bindFinal
	// bindProvisional is a bind to the current interim; never
	// speech-eligible on its own.
	bindProvisional
	// bindRefresh updated an already-translated final entry without
	// re-triggering speech.
	bindRefresh
)

func (k bindKind) String() string {
	switch k {
	case bindFinal:
		return "final"
	case bindProvisional:
		return "provisional"
	case bindRefresh:
		return "refresh"
	default:
		return "none"
	}
}

// bindResult is the outcome of matching one translation event.
type bindResult struct {
	Kind  bindKind
	Entry *models.TranscriptEntry
}

// matcher binds asynchronously arriving translation events to transcript
// entries. Events routinely arrive after the entry they were meant for has
// been superseded; anything unmatched is discarded as stale.
//
// All methods must be called from the session's coordination loop.
type matcher struct {
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func newMatcher() *matcher {
	return &matcher{
		log:     logging.WithComponent("matcher"),
		metrics: metrics.DefaultMetrics,
	}
}

// Match finds the entry for a translation event and sets its Translation.
// Precedence: exact match on a final entry, then prefix match on a final
// entry, then exact-or-prefix match on the interim, newest candidates first.
// Every step is language-gated.
func (m *matcher) Match(history []*models.TranscriptEntry, interim *models.TranscriptEntry, sourceText, translatedText string) bindResult {
	if sourceText == "" || translatedText == "" {
		return bindResult{Kind: bindNone}
	}
	inferred := language.Detect(sourceText)

	if res, ok := m.matchFinals(history, sourceText, translatedText, inferred, true); ok {
		return res
	}
	if res, ok := m.matchFinals(history, sourceText, translatedText, inferred, false); ok {
		return res
	}
	if interim != nil && textsRelate(interim.Text, sourceText) {
		if m.languageAgrees(interim, inferred) {
			interim.Translation = translatedText
			m.metrics.RecordBind(bindProvisional.String())
			return bindResult{Kind: bindProvisional, Entry: interim}
		}
	}

	m.metrics.RecordDiscarded()
	m.log.Debug().Str("sourceText", sourceText).Msg("translation matched no entry, discarded")
	return bindResult{Kind: bindNone}
}

func (m *matcher) matchFinals(history []*models.TranscriptEntry, sourceText, translatedText, inferred string, exact bool) (bindResult, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		entry := history[i]
		if exact {
			if entry.Text != sourceText {
				continue
			}
		} else if !textsRelate(entry.Text, sourceText) {
			continue
		}
		if !m.languageAgrees(entry, inferred) {
			continue
		}
		if entry.Translation != "" {
			// Already bound once; refresh the text without
			// re-triggering speech.
			entry.Translation = translatedText
			m.metrics.RecordBind(bindRefresh.String())
			return bindResult{Kind: bindRefresh, Entry: entry}, true
		}
		entry.Translation = translatedText
		m.metrics.RecordBind(bindFinal.String())
		return bindResult{Kind: bindFinal, Entry: entry}, true
	}
	return bindResult{}, false
}

// languageAgrees applies the language gate: an entry with a recorded source
// language only accepts translations whose source text is classified as the
// same base tag. This keeps a translation meant for a later same-language
// utterance off an earlier one when two languages were spoken back-to-back.
func (m *matcher) languageAgrees(entry *models.TranscriptEntry, inferred string) bool {
	if entry.LanguageTag == "" {
		return true
	}
	if language.SameBase(entry.LanguageTag, inferred) {
		return true
	}
	m.metrics.RecordBindRejected("language_mismatch")
	m.log.Debug().Str("entryLanguage", entry.LanguageTag).Str("inferred", inferred).
		Str("text", entry.Text).Msg("candidate match rejected by language gate")
	return false
}

// textsRelate reports whether either text is a prefix of the other, which
// absorbs punctuation and whitespace drift from the provider.
func textsRelate(a, b string) bool {
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}
