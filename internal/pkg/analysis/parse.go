package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/callsense/callsense/internal/pkg/persistence"
)

var (
	sentiments    = map[string]bool{"positive": true, "neutral": true, "negative": true}
	satisfactions = map[string]bool{"satisfied": true, "neutral": true, "dissatisfied": true}
)

// decodeAnalysis parses the model's free text into a validated result.
// The text may wrap the JSON into a Markdown code fence. Every field is
// checked individually: enums fall back to neutral, numbers are clamped
// to their declared range, lists default to empty.
func decodeAnalysis(content string) (*persistence.Analysis, error) {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &m); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	res := &persistence.Analysis{}
	res.Sentiment = enumOr(m, "sentiment", sentiments, "neutral")
	res.SentimentScore = clamp(numOr(m, "sentimentScore", 0.5), 0, 1)
	res.Topics = stringList(m, "topics")
	res.Summary = stringOr(m, "summary")
	res.Keywords = stringList(m, "keywords")
	res.QualityScore = clamp(numOr(m, "qualityScore", 5), 1, 10)
	res.ActionItems = stringList(m, "actionItems")
	res.CustomerSatisfaction = enumOr(m, "customerSatisfaction", satisfactions, "neutral")
	ap, _ := m["agentPerformance"].(map[string]interface{})
	res.AgentPerformance = persistence.AgentScores{
		Communication:   clamp(numOr(ap, "communication", 5), 1, 10),
		Professionalism: clamp(numOr(ap, "professionalism", 5), 1, 10),
		ProblemSolving:  clamp(numOr(ap, "problemSolving", 5), 1, 10),
		Empathy:         clamp(numOr(ap, "empathy", 5), 1, 10),
	}
	return res, nil
}

// stripCodeFence drops an optional ```json ... ``` or ``` ... ``` wrapper
func stripCodeFence(s string) string {
	res := strings.TrimSpace(s)
	if !strings.HasPrefix(res, "```") {
		return res
	}
	res = strings.TrimPrefix(res, "```")
	if i := strings.Index(res, "\n"); i >= 0 && strings.HasPrefix(strings.ToLower(res[:i]), "json") {
		res = res[i+1:]
	} else {
		res = strings.TrimPrefix(res, "json")
	}
	res = strings.TrimSuffix(strings.TrimSpace(res), "```")
	return strings.TrimSpace(res)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func enumOr(m map[string]interface{}, key string, allowed map[string]bool, def string) string {
	s, ok := m[key].(string)
	if !ok || !allowed[strings.ToLower(s)] {
		return def
	}
	return strings.ToLower(s)
}

func numOr(m map[string]interface{}, key string, def float64) float64 {
	if m == nil {
		return def
	}
	switch v := m[key].(type) {
	case float64:
		return v
	case json.Number:
		f, err := v.Float64()
		if err == nil {
			return f
		}
	}
	return def
}

func stringOr(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func stringList(m map[string]interface{}, key string) []string {
	res := []string{}
	l, ok := m[key].([]interface{})
	if !ok {
		return res
	}
	for _, v := range l {
		if s, ok := v.(string); ok {
			res = append(res, s)
		}
	}
	return res
}
