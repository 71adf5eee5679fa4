package inform

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callsense/callsense/internal/pkg/messages"
	"github.com/callsense/callsense/internal/pkg/persistence"
)

func makerConfig(t *testing.T, prms map[string]string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.Set("mail.from", "noreply@callsense.io")
	for k, val := range prms {
		v.Set(k, val)
	}
	return v
}

func TestNewTemplateMaker(t *testing.T) {
	m, err := NewTemplateMaker(makerConfig(t, nil))
	require.Nil(t, err)
	assert.NotNil(t, m)
}

func TestNewTemplateMaker_NoFrom(t *testing.T) {
	v := viper.New()
	_, err := NewTemplateMaker(v)
	assert.NotNil(t, err)
}

func TestNewTemplateMaker_BadTemplate(t *testing.T) {
	_, err := NewTemplateMaker(makerConfig(t, map[string]string{"mail.template": "{{.olia"}))
	assert.NotNil(t, err)
}

func TestMake_Completed(t *testing.T) {
	m, err := NewTemplateMaker(makerConfig(t, nil))
	require.Nil(t, err)
	call := &persistence.Call{ID: "c1", Email: "o@o.lt"}
	res, err := m.Make(call, messages.InformCompleted, time.Date(2023, 10, 1, 10, 0, 0, 0, time.UTC))
	require.Nil(t, err)
	assert.Equal(t, "noreply@callsense.io", res.From)
	assert.Equal(t, []string{"o@o.lt"}, res.To)
	assert.Equal(t, "Call analysis completed", res.Subject)
	assert.Contains(t, string(res.Text), "c1")
	assert.Contains(t, string(res.Text), "is ready")
	assert.Contains(t, string(res.Text), "2023-10-01 10:00:00")
}

func TestMake_Failed(t *testing.T) {
	m, err := NewTemplateMaker(makerConfig(t, nil))
	require.Nil(t, err)
	call := &persistence.Call{ID: "c1", Email: "o@o.lt", Error: "transcription: stt down"}
	res, err := m.Make(call, messages.InformFailed, time.Now())
	require.Nil(t, err)
	assert.Equal(t, "Call analysis failed", res.Subject)
	assert.Contains(t, string(res.Text), "failed")
	assert.Contains(t, string(res.Text), "transcription: stt down")
}

func TestMake_URL(t *testing.T) {
	m, err := NewTemplateMaker(makerConfig(t, map[string]string{"mail.url": "https://app.callsense.io/calls/%s"}))
	require.Nil(t, err)
	res, err := m.Make(&persistence.Call{ID: "c1", Email: "o@o.lt"}, messages.InformCompleted, time.Now())
	require.Nil(t, err)
	assert.Contains(t, string(res.Text), "https://app.callsense.io/calls/c1")
}

func TestMake_UnknownType(t *testing.T) {
	m, err := NewTemplateMaker(makerConfig(t, nil))
	require.Nil(t, err)
	_, err = m.Make(&persistence.Call{ID: "c1", Email: "o@o.lt"}, "olia", time.Now())
	assert.NotNil(t, err)
}
