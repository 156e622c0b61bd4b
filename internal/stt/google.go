// Package stt provides speech recognizers and the transcript summarizer used
// by the transcription endpoint.
package stt

import (
	"context"
	"fmt"
	"mime"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
)

// DefaultSampleRate matches the Opus capture rate of the kiosk.
const DefaultSampleRate = 48000

// GoogleRecognizer uses Google Cloud Speech-to-Text synchronous recognition.
// Requires GOOGLE_APPLICATION_CREDENTIALS to be set.
type GoogleRecognizer struct {
	client     *speech.Client
	language   string
	sampleRate int32
}

// NewGoogleRecognizer creates a recognizer for the given BCP-47 language.
func NewGoogleRecognizer(ctx context.Context, language string) (*GoogleRecognizer, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	if language == "" {
		language = "ja-JP"
	}
	return &GoogleRecognizer{client: c, language: language, sampleRate: DefaultSampleRate}, nil
}

// Recognize returns the concatenated top alternative of every result.
func (g *GoogleRecognizer) Recognize(ctx context.Context, audio []byte, mimeType string) (string, error) {
	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: RecognitionConfig(mimeType, g.sampleRate, g.language),
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, r := range resp.GetResults() {
		if alts := r.GetAlternatives(); len(alts) > 0 {
			b.WriteString(alts[0].GetTranscript())
		}
	}
	return b.String(), nil
}

func (g *GoogleRecognizer) Close() error {
	return g.client.Close()
}

// RecognitionConfig builds the request config for a recording of mimeType.
func RecognitionConfig(mimeType string, sampleRate int32, language string) *speechpb.RecognitionConfig {
	enc := EncodingFor(mimeType)
	cfg := &speechpb.RecognitionConfig{
		Encoding:                   enc,
		LanguageCode:               language,
		EnableAutomaticPunctuation: true,
	}
	// FLAC and WAV carry their own rate in the header.
	if enc == speechpb.RecognitionConfig_WEBM_OPUS || enc == speechpb.RecognitionConfig_OGG_OPUS {
		cfg.SampleRateHertz = sampleRate
	}
	return cfg
}

// EncodingFor maps a MIME type such as "audio/webm;codecs=opus" to the
// recognizer's encoding enum.
func EncodingFor(mimeType string) speechpb.RecognitionConfig_AudioEncoding {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	}
	switch mediaType {
	case "audio/webm":
		return speechpb.RecognitionConfig_WEBM_OPUS
	case "audio/ogg":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "audio/flac", "audio/x-flac":
		return speechpb.RecognitionConfig_FLAC
	case "audio/wav", "audio/x-wav", "audio/wave":
		return speechpb.RecognitionConfig_LINEAR16
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}
