package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormat_DecorateText(t *testing.T) {
	assert := assert.New(t)

	s := DecorateText("done", SuccessMessage)
	assert.True(strings.HasPrefix(s, SuccessColor))
	assert.True(strings.HasSuffix(s, DefaultColor))
	assert.Equal("plain", DecorateText("plain", MessageType(42)))
}

func TestFormat_StatusLine(t *testing.T) {
	assert := assert.New(t)

	assert.Contains(StatusLine("saved", true), "✔")
	assert.Contains(StatusLine("failed", false), "✘")
	assert.Contains(StatusLine("saved", true), Tag)
}

func TestFormat_FormatTime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{1500 * time.Millisecond, "1.50s"},
		{2*time.Minute + 3*time.Second, "2m 3.00s"},
		{time.Hour + 5*time.Minute, "1h 5m 0.00s"},
		{26*time.Hour + 30*time.Second, "1d 2h 0m 30.00s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTime(tt.d))
		})
	}
}
