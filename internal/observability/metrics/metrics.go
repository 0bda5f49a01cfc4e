// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "live_speech_translator"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsStarted  prometheus.Counter
	SessionsFailed   *prometheus.CounterVec
	SessionsEnded    prometheus.Counter
	ConnectDuration  prometheus.Histogram

	// Transcript metrics
	TranscriptsPartial prometheus.Counter
	TranscriptsFinal   prometheus.Counter
	DuplicatesRemoved  *prometheus.CounterVec
	Corrections        prometheus.Counter
	PseudoFinals       prometheus.Counter

	// Translation metrics
	TranslationsBound     *prometheus.CounterVec
	TranslationsRejected  *prometheus.CounterVec
	TranslationsDiscarded prometheus.Counter

	// Speech queue metrics
	SpeechEnqueued     prometheus.Counter
	SpeechDeduplicated prometheus.Counter
	SpeechPlayed       prometheus.Counter
	SpeechSkipped      prometheus.Counter
	SynthesisErrors    *prometheus.CounterVec
	SynthesisLatency   prometheus.Histogram

	// Audio gate metrics
	AudioBytesSent  prometheus.Counter
	AudioFramesSent prometheus.Counter

	// Event export metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of session connect attempts",
		}),
		SessionsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_failed_total",
			Help:      "Total number of sessions that entered the error state",
		}, []string{"reason"}),
		SessionsEnded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Total number of sessions ended",
		}),
		ConnectDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "connect_duration_seconds",
			Help:      "Provider connect/negotiate duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}),

		TranscriptsPartial: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_partial_total",
			Help:      "Total number of interim transcript results received",
		}),
		TranscriptsFinal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_final_total",
			Help:      "Total number of final transcript entries appended",
		}),
		DuplicatesRemoved: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_duplicates_removed_total",
			Help:      "Total number of stale finals removed by merge logic",
		}, []string{"kind"}),
		Corrections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_corrections_total",
			Help:      "Total number of correction events applied",
		}),
		PseudoFinals: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_pseudo_finals_total",
			Help:      "Total number of interims promoted to finals",
		}),

		TranslationsBound: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_bound_total",
			Help:      "Total number of translations bound to transcript entries",
		}, []string{"kind"}),
		TranslationsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_rejected_total",
			Help:      "Total number of candidate matches rejected",
		}, []string{"reason"}),
		TranslationsDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_discarded_total",
			Help:      "Total number of translation events with no matching entry",
		}),

		SpeechEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_enqueued_total",
			Help:      "Total number of items appended to the speech queue",
		}),
		SpeechDeduplicated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_deduplicated_total",
			Help:      "Total number of enqueue attempts suppressed as duplicates",
		}),
		SpeechPlayed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_played_total",
			Help:      "Total number of utterances played to completion",
		}),
		SpeechSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_skipped_total",
			Help:      "Total number of utterances skipped by user action",
		}),
		SynthesisErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_errors_total",
			Help:      "Total number of synthesis failures (non-fatal)",
		}, []string{"provider"}),
		SynthesisLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_latency_seconds",
			Help:      "Speech synthesis request latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),

		AudioBytesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_sent_total",
			Help:      "Total outbound audio bytes sent to the recognition provider",
		}),
		AudioFramesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_sent_total",
			Help:      "Total outbound audio frames sent to the recognition provider",
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordConnect records a session connect attempt.
func (m *Metrics) RecordConnect() {
	m.SessionsStarted.Inc()
}

// RecordConnectResult records the outcome of a connect attempt.
func (m *Metrics) RecordConnectResult(err error, reason string, durationSeconds float64) {
	m.ConnectDuration.Observe(durationSeconds)
	if err != nil {
		m.SessionsFailed.WithLabelValues(reason).Inc()
	}
}

// RecordSessionEnded records a session ending.
func (m *Metrics) RecordSessionEnded() {
	m.SessionsEnded.Inc()
}

// RecordPartial records an interim transcript result.
func (m *Metrics) RecordPartial() {
	m.TranscriptsPartial.Inc()
}

// RecordFinal records a final transcript entry.
func (m *Metrics) RecordFinal() {
	m.TranscriptsFinal.Inc()
}

// RecordDuplicateRemoved records a merged-away stale final.
func (m *Metrics) RecordDuplicateRemoved(kind string) {
	m.DuplicatesRemoved.WithLabelValues(kind).Inc()
}

// RecordCorrection records an applied correction event.
func (m *Metrics) RecordCorrection() {
	m.Corrections.Inc()
}

// RecordPseudoFinal records an interim promoted to a final.
func (m *Metrics) RecordPseudoFinal() {
	m.PseudoFinals.Inc()
}

// RecordBind records a translation bind ("final", "provisional" or "refresh").
func (m *Metrics) RecordBind(kind string) {
	m.TranslationsBound.WithLabelValues(kind).Inc()
}

// RecordBindRejected records a rejected candidate match.
func (m *Metrics) RecordBindRejected(reason string) {
	m.TranslationsRejected.WithLabelValues(reason).Inc()
}

// RecordDiscarded records a translation event that matched nothing.
func (m *Metrics) RecordDiscarded() {
	m.TranslationsDiscarded.Inc()
}

// RecordEnqueued records a speech item appended to the queue.
func (m *Metrics) RecordEnqueued() {
	m.SpeechEnqueued.Inc()
}

// RecordDeduplicated records a suppressed duplicate enqueue.
func (m *Metrics) RecordDeduplicated() {
	m.SpeechDeduplicated.Inc()
}

// RecordPlayed records a completed playback.
func (m *Metrics) RecordPlayed() {
	m.SpeechPlayed.Inc()
}

// RecordSkipped records a user-initiated skip.
func (m *Metrics) RecordSkipped() {
	m.SpeechSkipped.Inc()
}

// RecordSynthesis records a synthesis attempt outcome.
func (m *Metrics) RecordSynthesis(provider string, err error, latencySeconds float64) {
	m.SynthesisLatency.Observe(latencySeconds)
	if err != nil {
		m.SynthesisErrors.WithLabelValues(provider).Inc()
	}
}

// RecordAudioSent records outbound audio passing the gate.
func (m *Metrics) RecordAudioSent(bytes int) {
	m.AudioBytesSent.Add(float64(bytes))
	m.AudioFramesSent.Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic).Inc()
	}
}
