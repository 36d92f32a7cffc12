package classifier

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/pacekeeper/pacekeeper/pkg/models"
)

// DefaultClassifyTimeout bounds the external language-analysis call so a
// slow collaborator degrades to neutral instead of stalling the schedule
// state machine.
const DefaultClassifyTimeout = 6 * time.Second

var jsonPattern = regexp.MustCompile(`(?s)\{.*\}`)

// GenAI is a Gemini-backed classifier. A backend outage yields a
// degraded neutral reading at intensity zero; an unparseable response
// falls back to the lexical classifier with the degraded flag set, so
// callers can tell a confident reading from a guessed one.
type GenAI struct {
	client    *genai.Client
	model     string
	timeout   time.Duration
	threshold float64
	fallback  *Lexical
}

// GenAIConfig configures the Gemini classifier backend.
type GenAIConfig struct {
	APIKey    string
	Model     string
	Timeout   time.Duration
	Threshold float64
}

// NewGenAI creates a Gemini-backed classifier.
func NewGenAI(ctx context.Context, cfg GenAIConfig) (*GenAI, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultClassifyTimeout
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultConfidenceThreshold
	}
	return &GenAI{
		client:    client,
		model:     cfg.Model,
		timeout:   cfg.Timeout,
		threshold: cfg.Threshold,
		fallback:  &Lexical{Threshold: cfg.Threshold},
	}, nil
}

// classifyResponse is the JSON shape requested from the model.
type classifyResponse struct {
	Label     string  `json:"label"`
	Intensity float64 `json:"intensity"`
}

// Classify asks the model for a single label and intensity. The call
// carries a bounded timeout; timeout or malformed output yields a
// degraded reading via the lexical fallback.
func (c *GenAI) Classify(ctx context.Context, utterance string, history []models.EmotionalStateReading) models.EmotionalStateReading {
	if strings.TrimSpace(utterance) == "" {
		return DegradedNeutral(utterance)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := c.buildPrompt(utterance, history)
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		log.Warn().Err(err).Msg("Classification backend unavailable, degrading to neutral")
		return DegradedNeutral(utterance)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		log.Warn().Msg("Classification returned no candidates, degrading to neutral")
		return DegradedNeutral(utterance)
	}

	text := resp.Candidates[0].Content.Parts[0].Text
	parsed, ok := parseClassification(text)
	if !ok {
		log.Warn().Str("response", text).Msg("Unparseable classification response, degrading to lexical")
		return c.degraded(ctx, utterance, history)
	}

	return gate(models.EmotionalLabel(parsed.Label), parsed.Intensity, utterance, c.threshold)
}

// degraded runs the lexical fallback and forces the degraded flag, so a
// garbled response is never mistaken for a confident reading.
func (c *GenAI) degraded(ctx context.Context, utterance string, history []models.EmotionalStateReading) models.EmotionalStateReading {
	reading := c.fallback.Classify(ctx, utterance, history)
	reading.Degraded = true
	return reading
}

func (c *GenAI) buildPrompt(utterance string, history []models.EmotionalStateReading) string {
	var b strings.Builder
	b.WriteString(`Analyze this message from someone with ADHD for emotional state indicators.

Look for signs of:
- frustrated: anger words, "this is stupid", "I can't"
- overwhelmed: "too much", "don't know where to start", scattered thoughts
- exhausted: "tired", "can't focus", "brain fog"
- hyperfocusing: "just a few more minutes", resistance to breaks, perfectionism
- avoidant: procrastination language, excuses, task switching
- energized: motivation, readiness, enthusiasm
- neutral: none of the above

`)
	if len(history) > 0 {
		b.WriteString("Recent states (oldest first): ")
		for i, r := range history {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(string(r.Label))
		}
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Message: %q\n\n", utterance)
	b.WriteString(`Return only JSON: {"label": "<one of frustrated|overwhelmed|exhausted|hyperfocusing|avoidant|energized|neutral>", "intensity": <0.0-1.0>}`)
	return b.String()
}

// parseClassification extracts the JSON object from a model response,
// tolerating surrounding prose.
func parseClassification(text string) (classifyResponse, bool) {
	var parsed classifyResponse
	match := jsonPattern.FindString(text)
	if match == "" {
		return parsed, false
	}
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		return parsed, false
	}
	if parsed.Label == "" {
		return parsed, false
	}
	return parsed, true
}
