package transcription

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

// speaker labels assigned positionally from the provider's diarization tags
const (
	SpeakerAgent    = "agent"
	SpeakerCustomer = "customer"
	SpeakerUnknown  = "unknown"
)

// Client communicates with the speech-to-text provider
type Client struct {
	httpclient *http.Client
	url        string
	key        string
	timeout    time.Duration
}

// NewClient creates a transcription client
func NewClient(url, key string) (*Client, error) {
	res := Client{}
	if url == "" {
		return nil, fmt.Errorf("no url")
	}
	if key == "" {
		return nil, fmt.Errorf("no key")
	}
	res.url = url
	res.key = key
	res.timeout = time.Minute * 10
	res.httpclient = &http.Client{Transport: newTransport()}
	return &res, nil
}

type sttWord struct {
	Word           string  `json:"word"`
	PunctuatedWord string  `json:"punctuated_word"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Speaker        *int    `json:"speaker"`
}

type sttResponse struct {
	Results struct {
		Channels []struct {
			DetectedLanguage string `json:"detected_language"`
			Alternatives     []struct {
				Transcript string    `json:"transcript"`
				Words      []sttWord `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe submits audio bytes and maps the word-level response into
// speaker segments. No retry here - a failed call surfaces to the pipeline.
func (cl *Client) Transcribe(ctx context.Context, audio []byte) (*persistence.Transcript, error) {
	ctx, cancelF := context.WithTimeout(ctx, cl.timeout)
	defer cancelF()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s?diarize=true&punctuate=true&detect_language=true&max_speakers=2", cl.url),
		bytes.NewReader(audio))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+cl.key)
	req.Header.Set("Content-Type", "application/octet-stream")
	log.Info().Str("url", req.URL.String()).Int("bytes", len(audio)).Msg("call transcriber")
	resp, err := cl.httpclient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("can't call: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if err := utils.ValidateResponse(resp, 300); err != nil {
		return nil, fmt.Errorf("can't invoke '%s': %w", cl.url, err)
	}
	var respData sttResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, fmt.Errorf("can't unmarshal: %w", err)
	}
	return mapTranscript(&respData)
}

func mapTranscript(resp *sttResponse) (*persistence.Transcript, error) {
	if len(resp.Results.Channels) == 0 || len(resp.Results.Channels[0].Alternatives) == 0 {
		return nil, fmt.Errorf("empty transcription response")
	}
	ch := resp.Results.Channels[0]
	alt := ch.Alternatives[0]
	res := &persistence.Transcript{Text: alt.Transcript, Language: ch.DetectedLanguage}
	if alt.Transcript == "" && len(alt.Words) == 0 {
		return nil, fmt.Errorf("empty transcription response")
	}
	res.Segments = groupSegments(alt.Words)
	if len(res.Segments) == 0 {
		// no word level detail - single span with the whole text
		res.Segments = []persistence.Segment{{Speaker: SpeakerUnknown, Text: alt.Transcript}}
	}
	if res.Text == "" {
		res.Text = joinSegments(res.Segments)
	}
	res.DurationSeconds = res.Segments[len(res.Segments)-1].EndTime
	return res, nil
}

// groupSegments joins consecutive same-speaker words into segments.
// Speaker labels are positional: the first diarization tag seen becomes
// the agent, the second the customer, anything else is unknown.
func groupSegments(words []sttWord) []persistence.Segment {
	var res []persistence.Segment
	labels := newSpeakerLabels()
	var cur *persistence.Segment
	var curTag *int
	var text []string
	for _, w := range words {
		if cur == nil || !sameSpeaker(curTag, w.Speaker) {
			if cur != nil {
				cur.Text = strings.Join(text, " ")
				res = append(res, *cur)
			}
			cur = &persistence.Segment{Speaker: labels.labelFor(w.Speaker), StartTime: w.Start, EndTime: w.End}
			curTag = w.Speaker
			text = text[:0]
		}
		cur.EndTime = w.End
		text = append(text, wordText(&w))
	}
	if cur != nil {
		cur.Text = strings.Join(text, " ")
		res = append(res, *cur)
	}
	return res
}

func wordText(w *sttWord) string {
	if w.PunctuatedWord != "" {
		return w.PunctuatedWord
	}
	return w.Word
}

func sameSpeaker(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// speakerLabels keeps the ordered provider-tag to label lookup
type speakerLabels struct {
	order []int
}

func newSpeakerLabels() *speakerLabels {
	return &speakerLabels{}
}

func (sl *speakerLabels) labelFor(tag *int) string {
	if tag == nil {
		return SpeakerUnknown
	}
	for i, t := range sl.order {
		if t == *tag {
			return labelAt(i)
		}
	}
	sl.order = append(sl.order, *tag)
	return labelAt(len(sl.order) - 1)
}

func labelAt(i int) string {
	switch i {
	case 0:
		return SpeakerAgent
	case 1:
		return SpeakerCustomer
	}
	return SpeakerUnknown
}

func joinSegments(segments []persistence.Segment) string {
	var sb strings.Builder
	for i, s := range segments {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(s.Text)
	}
	return sb.String()
}

func newTransport() http.RoundTripper {
	// default roundripper is not well suited for our case
	// it has just 2 idle connections per host, so try to tune a bit
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 100
	res.MaxIdleConns = 50
	res.MaxIdleConnsPerHost = 50
	res.IdleConnTimeout = 90 * time.Second
	return res
}
