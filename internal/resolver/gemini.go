package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/LennoxSears/dulaan-backend-sub001/internal/audio"
	"github.com/LennoxSears/dulaan-backend-sub001/internal/control"
)

const defaultGeminiModel = "gemini-2.0-flash"

// geminiSystemPrompt instructs the model to act as the device's intent
// extractor and to answer with bare JSON only.
const geminiSystemPrompt = `You are the voice-command interpreter for a remote-controlled device whose intensity is an integer PWM value between 0 and 255.
Listen to the attached audio of the operator. Decide whether it contains a deliberate spoken command to change the device intensity.
Classify the audio as one of: "command" (deliberate human instruction), "no_intent" (human speech without a control request), "device_noise" (the device's own motor/self noise), "background_noise".
Respond with a single JSON object and nothing else, using exactly these keys:
{"transcription": string, "response": string (a short conversational acknowledgement for the operator), "intent_detected": bool, "confidence": number between 0 and 1, "new_pwm_value": integer or null, "detected_language": string (BCP-47), "classification": string}`

// GeminiClient resolves intents by sending the utterance audio inline to the
// Gemini API in JSON-response mode.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient dials the Gemini API backend.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Resolve sends the utterance plus conversational context and parses the
// model's JSON verdict.
func (g *GeminiClient) Resolve(ctx context.Context, req Request) (Response, error) {
	var b strings.Builder
	b.WriteString(geminiSystemPrompt)
	fmt.Fprintf(&b, "\n\nCurrent PWM value: %d\n", req.CurrentPWM)
	if req.LanguageCode != "" {
		fmt.Fprintf(&b, "The operator speaks %s.\n", req.LanguageCode)
	}
	if len(req.History) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, t := range req.History {
			fmt.Fprintf(&b, "[OPERATOR] %s\n[DEVICE] %s (pwm=%d)\n", t.User, t.Reply, t.PWM)
		}
	}

	sampleRate := req.SampleRate
	if sampleRate == 0 {
		sampleRate = audio.SampleRate
	}
	wav := audio.WrapWAV(req.Audio, sampleRate)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(b.String()),
			genai.NewPartFromBytes(wav, "audio/wav"),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return Response{}, fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return Response{}, fmt.Errorf("gemini: empty response")
	}
	// some models still wrap JSON in a fence despite the response MIME type
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var verdict struct {
		Transcription    string   `json:"transcription"`
		Reply            string   `json:"response"`
		IntentDetected   bool     `json:"intent_detected"`
		Confidence       float64  `json:"confidence"`
		NewPWM           *float64 `json:"new_pwm_value"`
		DetectedLanguage string   `json:"detected_language"`
		Classification   string   `json:"classification"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &verdict); err != nil {
		return Response{}, fmt.Errorf("gemini verdict decode: %w", err)
	}

	out := Response{
		Success:          true,
		Transcription:    verdict.Transcription,
		Response:         verdict.Reply,
		IntentDetected:   verdict.IntentDetected,
		Confidence:       verdict.Confidence,
		DetectedLanguage: verdict.DetectedLanguage,
		Classification:   verdict.Classification,
	}
	if verdict.NewPWM != nil {
		v := control.Clamp(int(*verdict.NewPWM))
		out.NewPWM = &v
	}
	return out, nil
}
