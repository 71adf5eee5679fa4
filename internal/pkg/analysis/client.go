package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/callsense/callsense/internal/pkg/persistence"
	"github.com/callsense/callsense/internal/pkg/utils"
	"github.com/rs/zerolog/log"
)

// Client communicates with the LLM provider over a chat-completions API
type Client struct {
	httpclient *http.Client
	url        string
	key        string
	model      string
	timeout    time.Duration
}

// NewClient creates an analysis client
func NewClient(url, key, model string) (*Client, error) {
	res := Client{}
	if url == "" {
		return nil, fmt.Errorf("no url")
	}
	if key == "" {
		return nil, fmt.Errorf("no key")
	}
	if model == "" {
		return nil, fmt.Errorf("no model")
	}
	res.url = url
	res.key = key
	res.model = model
	res.timeout = time.Minute * 5
	res.httpclient = &http.Client{}
	return &res, nil
}

// Analyze renders the transcript into the analysis prompt and decodes
// the model's JSON answer into a validated result. The model output is
// untrusted - every field is clamped or defaulted before it may reach storage.
func (cl *Client) Analyze(ctx context.Context, text string, segments []persistence.Segment) (*persistence.Analysis, error) {
	prompt := analysisPrompt(text, segments)
	content, err := cl.chat(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return decodeAnalysis(content)
}

// GenerateReport asks the model for a free-text report over the
// transcript and the prior analysis. The answer is returned verbatim.
func (cl *Client) GenerateReport(ctx context.Context, text string, als *persistence.Analysis) (string, error) {
	prompt, err := reportPrompt(text, als)
	if err != nil {
		return "", err
	}
	return cl.chat(ctx, prompt)
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (cl *Client) chat(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{Model: cl.model, Temperature: 0.2,
		Messages: []chatMessage{{Role: "user", Content: prompt}}})
	if err != nil {
		return "", fmt.Errorf("can't marshal request: %w", err)
	}
	ctx, cancelF := context.WithTimeout(ctx, cl.timeout)
	defer cancelF()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cl.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cl.key)
	log.Info().Str("url", cl.url).Str("model", cl.model).Msg("call llm")
	resp, err := cl.httpclient.Do(req)
	if err != nil {
		return "", fmt.Errorf("can't call: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if err := utils.ValidateResponse(resp, 300); err != nil {
		return "", fmt.Errorf("can't invoke '%s': %w", cl.url, err)
	}
	var respData chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return "", fmt.Errorf("can't unmarshal: %w", err)
	}
	if len(respData.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return respData.Choices[0].Message.Content, nil
}

func analysisPrompt(text string, segments []persistence.Segment) string {
	var sb strings.Builder
	sb.WriteString(`Analyze the following customer support call transcript. Respond with a single JSON object, no prose, with these fields:
sentiment ("positive"|"neutral"|"negative"), sentimentScore (0..1), topics (string list), summary (string), keywords (string list), qualityScore (1..10), actionItems (string list), customerSatisfaction ("satisfied"|"neutral"|"dissatisfied"), agentPerformance (object with communication, professionalism, problemSolving, empathy, each 1..10).

Transcript:
`)
	sb.WriteString(renderTranscript(text, segments))
	return sb.String()
}

func reportPrompt(text string, als *persistence.Analysis) (string, error) {
	alsJSON, err := json.Marshal(als)
	if err != nil {
		return "", fmt.Errorf("can't marshal analysis: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("Write a concise Markdown report for a call-center manager about the call below. Use the analysis as ground truth.\n\nAnalysis:\n")
	sb.Write(alsJSON)
	sb.WriteString("\n\nTranscript:\n")
	sb.WriteString(text)
	return sb.String(), nil
}

func renderTranscript(text string, segments []persistence.Segment) string {
	if len(segments) == 0 {
		return text
	}
	var sb strings.Builder
	for _, s := range segments {
		sb.WriteString(s.Speaker)
		sb.WriteString(": ")
		sb.WriteString(s.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}
