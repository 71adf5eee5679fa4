package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_decodeAnalysis(t *testing.T) {
	res, err := decodeAnalysis(`{"sentiment":"positive","sentimentScore":0.8,
		"topics":["billing","refund"],"summary":"customer asked about a refund",
		"keywords":["refund"],"qualityScore":7,"actionItems":["send refund form"],
		"customerSatisfaction":"satisfied",
		"agentPerformance":{"communication":8,"professionalism":9,"problemSolving":7,"empathy":6}}`)
	require.Nil(t, err)
	assert.Equal(t, "positive", res.Sentiment)
	assert.Equal(t, 0.8, res.SentimentScore)
	assert.Equal(t, []string{"billing", "refund"}, res.Topics)
	assert.Equal(t, "customer asked about a refund", res.Summary)
	assert.Equal(t, float64(7), res.QualityScore)
	assert.Equal(t, "satisfied", res.CustomerSatisfaction)
	assert.Equal(t, float64(8), res.AgentPerformance.Communication)
	assert.Equal(t, float64(6), res.AgentPerformance.Empathy)
}

func Test_decodeAnalysis_Clamps(t *testing.T) {
	res, err := decodeAnalysis(`{"qualityScore":15}`)
	require.Nil(t, err)
	assert.Equal(t, float64(10), res.QualityScore)

	res, err = decodeAnalysis(`{"qualityScore":-3}`)
	require.Nil(t, err)
	assert.Equal(t, float64(1), res.QualityScore)

	res, err = decodeAnalysis(`{"sentimentScore":7.5}`)
	require.Nil(t, err)
	assert.Equal(t, float64(1), res.SentimentScore)

	res, err = decodeAnalysis(`{"sentimentScore":-0.3}`)
	require.Nil(t, err)
	assert.Equal(t, float64(0), res.SentimentScore)

	res, err = decodeAnalysis(`{"agentPerformance":{"communication":100,"empathy":0}}`)
	require.Nil(t, err)
	assert.Equal(t, float64(10), res.AgentPerformance.Communication)
	assert.Equal(t, float64(1), res.AgentPerformance.Empathy)
}

func Test_decodeAnalysis_EnumFallback(t *testing.T) {
	res, err := decodeAnalysis(`{"sentiment":"ecstatic","customerSatisfaction":"thrilled"}`)
	require.Nil(t, err)
	assert.Equal(t, "neutral", res.Sentiment)
	assert.Equal(t, "neutral", res.CustomerSatisfaction)
}

func Test_decodeAnalysis_WrongTypes(t *testing.T) {
	res, err := decodeAnalysis(`{"topics":"billing","keywords":42,"actionItems":[1,2,"call back"],"summary":17}`)
	require.Nil(t, err)
	assert.Equal(t, []string{}, res.Topics)
	assert.Equal(t, []string{}, res.Keywords)
	assert.Equal(t, []string{"call back"}, res.ActionItems)
	assert.Equal(t, "", res.Summary)
}

func Test_decodeAnalysis_Defaults(t *testing.T) {
	res, err := decodeAnalysis(`{}`)
	require.Nil(t, err)
	assert.Equal(t, "neutral", res.Sentiment)
	assert.Equal(t, 0.5, res.SentimentScore)
	assert.Equal(t, float64(5), res.QualityScore)
	assert.Equal(t, []string{}, res.Topics)
	assert.Equal(t, float64(5), res.AgentPerformance.ProblemSolving)
}

func Test_decodeAnalysis_Fails(t *testing.T) {
	tests := []struct {
		name string
		args string
	}{
		{name: "Plain text", args: "the call went well"},
		{name: "JSON in prose", args: "Here is the result: {\"sentiment\":\"positive\"} as requested"},
		{name: "Empty", args: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeAnalysis(tt.args)
			assert.NotNil(t, err)
		})
	}
}

func Test_stripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		args string
		want string
	}{
		{name: "None", args: `{"a":1}`, want: `{"a":1}`},
		{name: "Json fence", args: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "Bare fence", args: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "Spaces around", args: "  ```json\n{\"a\":1}\n```  ", want: `{"a":1}`},
		{name: "Inline", args: "```json{\"a\":1}```", want: `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFence(tt.args); got != tt.want {
				t.Errorf("stripCodeFence() = %v, want %v", got, tt.want)
			}
		})
	}
}
