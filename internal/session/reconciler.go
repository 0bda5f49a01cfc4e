package session

import (
	"strings"

	"github.com/rs/zerolog"

	"live-speech-translator/internal/config"
	"live-speech-translator/internal/models"
	"live-speech-translator/internal/observability/logging"
	"live-speech-translator/internal/observability/metrics"
	"live-speech-translator/internal/provider"
)

// reconcileOutcome reports what a recognition result did to the transcript
// state, so the caller can export events and offer speech.
type reconcileOutcome struct {
	// AppendedFinal is the final entry appended by this result, if any.
	AppendedFinal *models.TranscriptEntry
	// PromotedFinal is an interim promoted to final ahead of its
	// replacement, if any.
	PromotedFinal *models.TranscriptEntry
	// RemovedDuplicate is true when a stale tail final was merged away.
	RemovedDuplicate bool
	// InterimChanged is true when the current interim was created or
	// replaced.
	InterimChanged bool
}

// reconciler ingests recognition results and maintains the canonical ordered
// transcript history plus at most one in-progress interim entry. It owns
// entry lifecycle exclusively; the matcher only ever sets Translation.
//
// All methods must be called from the session's coordination loop.
type reconciler struct {
	tuning  config.TuningConfig
	caps    provider.Capabilities
	history []*models.TranscriptEntry
	interim *models.TranscriptEntry
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func newReconciler(tuning config.TuningConfig, caps provider.Capabilities) *reconciler {
	return &reconciler{
		tuning:  tuning,
		caps:    caps,
		log:     logging.WithComponent("reconciler"),
		metrics: metrics.DefaultMetrics,
	}
}

// OnResult applies one recognition result.
func (r *reconciler) OnResult(text string, isFinal bool, confidence float64, languageTag string) reconcileOutcome {
	if isFinal {
		return r.applyFinal(text, confidence, languageTag)
	}
	return r.applyInterim(text, confidence, languageTag)
}

func (r *reconciler) applyInterim(text string, confidence float64, languageTag string) reconcileOutcome {
	r.metrics.RecordPartial()
	var out reconcileOutcome

	prev := r.interim
	if prev != nil && !r.caps.ReliableFinals && r.shouldPromote(prev.Text, text) {
		// The provider moved on without finalizing; keep the utterance.
		prev.IsFinal = true
		r.history = append(r.history, prev)
		r.metrics.RecordPseudoFinal()
		r.metrics.RecordFinal()
		r.log.Debug().Str("text", prev.Text).Msg("interim promoted to final")
		out.PromotedFinal = prev
		prev = nil
	}

	entry := models.NewTranscriptEntry(text, false, confidence, languageTag)
	if prev != nil && prev.Translation != "" && r.caps.InterimTranslationsAuthoritative {
		entry.Translation = prev.Translation
	}
	r.interim = entry
	out.InterimChanged = true
	return out
}

// shouldPromote reports whether oldText is a distinct utterance the provider
// abandoned: the new interim has no prefix relation to it and it is long
// enough to be worth keeping.
func (r *reconciler) shouldPromote(oldText, newText string) bool {
	if len([]rune(oldText)) <= r.tuning.PromoteMinLength {
		return false
	}
	return !strings.HasPrefix(newText, oldText) && !strings.HasPrefix(oldText, newText)
}

func (r *reconciler) applyFinal(text string, confidence float64, languageTag string) reconcileOutcome {
	var out reconcileOutcome

	if tail := r.lastFinal(); tail != nil {
		if kind, dup := r.duplicateKind(tail.Text, text); dup {
			r.history = r.history[:len(r.history)-1]
			r.metrics.RecordDuplicateRemoved(kind)
			r.log.Debug().Str("removed", tail.Text).Str("kept", text).Str("kind", kind).
				Msg("stale tail final merged away")
			out.RemovedDuplicate = true
		}
	}

	cleared := r.interim
	r.interim = nil

	entry := models.NewTranscriptEntry(text, true, confidence, languageTag)
	if cleared != nil && cleared.Translation != "" && r.caps.InterimTranslationsAuthoritative {
		entry.Translation = cleared.Translation
	}
	r.history = append(r.history, entry)
	r.metrics.RecordFinal()
	out.AppendedFinal = entry
	return out
}

// duplicateKind classifies the previous tail final as a stale duplicate of
// newText: "contained" when newText strictly extends it, "overlap" when their
// common prefix covers enough of it.
func (r *reconciler) duplicateKind(prevText, newText string) (string, bool) {
	if strings.HasPrefix(newText, prevText) && len(newText) > len(prevText) {
		return "contained", true
	}
	prevLen := len([]rune(prevText))
	if prevLen >= r.tuning.MinOverlapLength {
		if float64(commonPrefixLen(newText, prevText)) >= r.tuning.OverlapRatio*float64(prevLen) {
			return "overlap", true
		}
	}
	return "", false
}

// OnCorrection removes the last final entry matching oldText, exactly or by a
// long-enough common prefix. The corrected text arrives later as ordinary
// results; no replacement is created here.
func (r *reconciler) OnCorrection(oldText, newText string) bool {
	if idx := r.findByText(oldText); idx >= 0 {
		r.removeAt(idx)
		r.metrics.RecordCorrection()
		return true
	}
	if idx := r.findByPrefix(oldText); idx >= 0 {
		r.removeAt(idx)
		r.metrics.RecordCorrection()
		return true
	}
	r.log.Debug().Str("oldText", oldText).Msg("correction matched no entry")
	return false
}

func (r *reconciler) findByText(text string) int {
	for i := len(r.history) - 1; i >= 0; i-- {
		if r.history[i].Text == text {
			return i
		}
	}
	return -1
}

func (r *reconciler) findByPrefix(text string) int {
	minLen := r.tuning.MinOverlapLength
	for i := len(r.history) - 1; i >= 0; i-- {
		entryLen := len([]rune(r.history[i].Text))
		if entryLen < minLen {
			continue
		}
		if float64(commonPrefixLen(r.history[i].Text, text)) >= r.tuning.OverlapRatio*float64(entryLen) {
			return i
		}
	}
	return -1
}

func (r *reconciler) removeAt(idx int) {
	r.history = append(r.history[:idx], r.history[idx+1:]...)
}

func (r *reconciler) lastFinal() *models.TranscriptEntry {
	if len(r.history) == 0 {
		return nil
	}
	return r.history[len(r.history)-1]
}

// History returns the final entries, oldest first. The slice is shared; the
// loop is the only writer.
func (r *reconciler) History() []*models.TranscriptEntry { return r.history }

// Interim returns the current interim entry, or nil.
func (r *reconciler) Interim() *models.TranscriptEntry { return r.interim }

// Reset clears all transcript state for a fresh session.
func (r *reconciler) Reset() {
	r.history = nil
	r.interim = nil
}

// commonPrefixLen returns the length, in runes, of the longest common prefix
// of a and b.
func commonPrefixLen(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	n := len(ra)
	if len(rb) < n {
		n = len(rb)
	}
	for i := 0; i < n; i++ {
		if ra[i] != rb[i] {
			return i
		}
	}
	return n
}
