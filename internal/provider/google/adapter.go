// Package google provides a Google Cloud Speech-to-Text recognition
// provider. It emits transcripts only; translation events never arrive, so
// the translation matcher stays idle with this provider.
package google

import (
	"context"
	"fmt"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"github.com/rs/zerolog"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"live-speech-translator/internal/observability/logging"
	"live-speech-translator/internal/provider"
)

// Adapter implements provider.Recognizer using Google Cloud Speech-to-Text.
// Requires GOOGLE_APPLICATION_CREDENTIALS to be set.
type Adapter struct {
	log zerolog.Logger

	mu         sync.RWMutex
	client     *speech.Client
	stream     speechpb.Speech_StreamingRecognizeClient
	cb         provider.Events
	sourceLang string
	connected  bool
	errMsg     string
}

// New creates a new Google recognition provider.
func New() *Adapter {
	return &Adapter{log: logging.WithComponent("google-stt")}
}

// Name implements provider.Recognizer.
func (a *Adapter) Name() string { return "google" }

// Capabilities implements provider.Recognizer. Google marks finals
// explicitly and never sends translations.
func (a *Adapter) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		ReliableFinals:                   true,
		InterimTranslationsAuthoritative: false,
		Translates:                       false,
	}
}

// Connect opens the streaming recognize session and sends the initial
// config. serverAddr is unused; the cloud SDK resolves its own endpoint.
func (a *Adapter) Connect(ctx context.Context, serverAddr, sourceLang, targetLang string, cb provider.Events) error {
	a.mu.Lock()
	if a.connected {
		a.mu.Unlock()
		return nil
	}
	a.errMsg = ""
	a.mu.Unlock()

	client, err := speech.NewClient(ctx)
	if err != nil {
		a.setError(err.Error())
		return fmt.Errorf("google: create client: %w", err)
	}

	stream, err := client.StreamingRecognize(context.Background())
	if err != nil {
		_ = client.Close()
		a.setError(err.Error())
		return fmt.Errorf("google: open stream: %w", err)
	}

	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz: 16000,
					LanguageCode:    sourceLang,
				},
				InterimResults: true,
			},
		},
	})
	if err != nil {
		_ = client.Close()
		a.setError(err.Error())
		return fmt.Errorf("google: send config: %w", err)
	}

	a.mu.Lock()
	a.client = client
	a.stream = stream
	a.cb = cb
	a.sourceLang = sourceLang
	a.connected = true
	a.mu.Unlock()

	go a.listen(stream, cb, sourceLang)

	a.log.Info().Str("language", sourceLang).Msg("google streaming recognition started")
	return nil
}

// SendAudio forwards one audio frame to the stream.
func (a *Adapter) SendAudio(pcm []byte) error {
	a.mu.RLock()
	stream := a.stream
	connected := a.connected
	a.mu.RUnlock()
	if !connected || stream == nil {
		return fmt.Errorf("google: not connected")
	}
	return stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: pcm,
		},
	})
}

// SendEndOfUtterance is a no-op: the cloud endpoint runs its own
// voice-activity detection.
func (a *Adapter) SendEndOfUtterance() error { return nil }

// Status implements provider.Recognizer.
func (a *Adapter) Status() provider.Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	switch {
	case a.connected:
		return provider.Status{State: provider.StateConnected}
	case a.errMsg != "":
		return provider.Status{State: provider.StateError, Err: a.errMsg}
	default:
		return provider.Status{State: provider.StateDisconnected}
	}
}

// Disconnect half-closes the stream and releases the client. Idempotent.
func (a *Adapter) Disconnect() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil
	}
	a.connected = false
	var err error
	if a.stream != nil {
		err = a.stream.CloseSend()
		a.stream = nil
	}
	if a.client != nil {
		_ = a.client.Close()
		a.client = nil
	}
	return err
}

func (a *Adapter) setError(msg string) {
	a.mu.Lock()
	a.errMsg = msg
	a.connected = false
	a.mu.Unlock()
}

// listen receives transcript responses and forwards them to the event sink.
func (a *Adapter) listen(stream speechpb.Speech_StreamingRecognizeClient, cb provider.Events, sourceLang string) {
	for {
		resp, err := stream.Recv()
		if err != nil {
			if status.Code(err) == codes.Canceled {
				// normal teardown
				return
			}
			a.mu.RLock()
			connected := a.connected
			a.mu.RUnlock()
			if connected {
				a.setError(err.Error())
				cb.OnError(err.Error())
			}
			return
		}

		for _, r := range resp.Results {
			if len(r.Alternatives) == 0 {
				continue
			}
			alt := r.Alternatives[0]
			lang := r.LanguageCode
			if lang == "" {
				lang = sourceLang
			}
			cb.OnTranscript(alt.Transcript, r.IsFinal, float64(alt.Confidence), lang)
		}
	}
}
