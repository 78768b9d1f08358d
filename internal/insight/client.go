package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"attendvisor/internal/attendance"
	"attendvisor/internal/metrics"
	"attendvisor/internal/report"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.0-flash"
)

var promptTmpl = template.Must(template.New("prompt").Parse(
	`You are an AI assistant that analyzes historical attendance data to provide insights on attendance trends.

Analyze the following historical attendance data for {{.ClassName}} taught by {{.FacultyName}}:
{{.HistoricalAttendanceData}}

Determine if attendance has improved over time. Provide insights on potential factors contributing to these trends.
Respond in JSON format.
`))

// outputSchema mirrors Output for the service's structured-output mode.
var outputSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"hasImproved": map[string]any{
			"type":        "BOOLEAN",
			"description": "Whether attendance has improved over time.",
		},
		"insights": map[string]any{
			"type":        "STRING",
			"description": "Insights on the attendance trends and potential contributing factors.",
		},
	},
	"required": []string{"hasImproved", "insights"},
}

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	// Timeout of zero leaves the transport default in place.
	Timeout time.Duration
	// Skip answers locally without calling the service.
	Skip bool
}

// Client calls a Gemini-compatible generateContent endpoint.
type Client struct {
	BaseURL  string
	APIKey   string
	Model    string
	HTTP     *http.Client
	Skip     bool
	log      *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

// New creates a client.
func New(cfg Config, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		BaseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
		HTTP:     &http.Client{Timeout: cfg.Timeout},
		Skip:     cfg.Skip,
		log:      log,
		validate: validator.New(),
		now:      time.Now,
	}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Request serializes the history, calls the service once and validates the answer.
func (c *Client) Request(ctx context.Context, history []attendance.HistoricalEntry, facultyName, className string) (Result, error) {
	res, err := c.request(ctx, history, facultyName, className)
	if err != nil {
		metrics.InsightRequests.WithLabelValues("failed").Inc()
		c.log.Warn("insight request failed",
			zap.String("class", className),
			zap.Int("history", len(history)),
			zap.Error(err),
		)
		return Result{}, ErrGenerationFailed
	}
	metrics.InsightRequests.WithLabelValues("ok").Inc()
	return res, nil
}

func (c *Client) request(ctx context.Context, history []attendance.HistoricalEntry, facultyName, className string) (Result, error) {
	if history == nil {
		history = []attendance.HistoricalEntry{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return Result{}, err
	}
	in := Input{FacultyName: facultyName, ClassName: className, HistoricalAttendanceData: string(data)}
	if err := c.validate.Struct(in); err != nil {
		return Result{}, fmt.Errorf("invalid input: %w", err)
	}
	if c.Skip {
		return c.local(history, in), nil
	}

	var prompt bytes.Buffer
	if err := promptTmpl.Execute(&prompt, in); err != nil {
		return Result{}, err
	}
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt.String()}}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   outputSchema,
		},
	})
	if err != nil {
		return Result{}, err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.BaseURL, c.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("x-goog-api-key", c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("insight service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, fmt.Errorf("insight service error %s: %s", resp.Status, string(bodyBytes))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return Result{}, fmt.Errorf("no candidates in response")
	}
	return c.parseOutput(out.Candidates[0].Content.Parts[0].Text)
}

// parseOutput decodes and validates the model's JSON answer.
func (c *Client) parseOutput(text string) (Result, error) {
	// fields outside the schema are dropped; anything after the object is not
	dec := json.NewDecoder(strings.NewReader(text))
	var out Output
	if err := dec.Decode(&out); err != nil {
		return Result{}, fmt.Errorf("malformed output: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Result{}, errors.New("malformed output: trailing data after object")
	}
	if err := c.validate.Struct(out); err != nil {
		return Result{}, fmt.Errorf("output schema: %w", err)
	}
	return Result{Improved: *out.HasImproved, Narrative: *out.Insights}, nil
}

// local derives a result from the week-over-week trend for dev setups
// without a model key.
func (c *Client) local(history []attendance.HistoricalEntry, in Input) Result {
	entries := make([]attendance.Entry, 0, len(history))
	for _, h := range history {
		entries = append(entries, attendance.Entry{Date: h.Date, StudentID: h.StudentID, Status: h.Status})
	}
	trend := report.WeeklyTrend(entries, c.now())
	rate := report.OverallPresentRate(entries)
	var narrative string
	switch trend {
	case report.TrendUp:
		narrative = fmt.Sprintf("Attendance in %s rose this week compared with the week before; the overall present rate is %d%%.", in.ClassName, rate)
	case report.TrendDown:
		narrative = fmt.Sprintf("Attendance in %s dropped this week compared with the week before; the overall present rate is %d%%.", in.ClassName, rate)
	default:
		narrative = fmt.Sprintf("Attendance in %s is steady; the overall present rate is %d%%.", in.ClassName, rate)
	}
	return Result{Improved: trend == report.TrendUp, Narrative: narrative}
}
