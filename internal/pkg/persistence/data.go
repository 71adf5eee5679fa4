package persistence

import "time"

type (

	// Call - one audio analysis job
	Call struct {
		ID             string
		OrganizationID string
		AudioReference string
		Status         string
		Error          string
		Email          string
		Transcript     *Transcript
		Analysis       *Analysis
		Created        time.Time
		Processed      *time.Time
		Updated        time.Time
	}

	// Transcript holds the full recognized text and speaker segments
	Transcript struct {
		Text            string    `json:"text"`
		Language        string    `json:"language,omitempty"`
		DurationSeconds float64   `json:"durationSeconds"`
		Segments        []Segment `json:"segments"`
	}

	// Segment is a contiguous single-speaker span
	Segment struct {
		Speaker   string  `json:"speaker"`
		Text      string  `json:"text"`
		StartTime float64 `json:"startTime"`
		EndTime   float64 `json:"endTime"`
	}

	// Analysis keeps validated LLM output for a call
	Analysis struct {
		Sentiment            string      `json:"sentiment"`
		SentimentScore       float64     `json:"sentimentScore"`
		Topics               []string    `json:"topics"`
		Summary              string      `json:"summary"`
		Keywords             []string    `json:"keywords"`
		QualityScore         float64     `json:"qualityScore"`
		ActionItems          []string    `json:"actionItems"`
		CustomerSatisfaction string      `json:"customerSatisfaction"`
		AgentPerformance     AgentScores `json:"agentPerformance"`
	}

	// AgentScores - agent performance sub-scores, each in [1,10]
	AgentScores struct {
		Communication   float64 `json:"communication"`
		Professionalism float64 `json:"professionalism"`
		ProblemSolving  float64 `json:"problemSolving"`
		Empathy         float64 `json:"empathy"`
	}

	// Organization - a billing tenant
	Organization struct {
		ID           string
		Name         string
		Plan         string
		MonthlyCalls int
		CallLimit    int
		Created      time.Time
	}
)
