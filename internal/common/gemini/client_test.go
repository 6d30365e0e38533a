package gemini

import (
	"context"
	"testing"

	"immigration-portal/internal/common/config"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain json", `{"isMatch":true}`, `{"isMatch":true}`},
		{"json fence", "```json\n{\"isMatch\":true}\n```", `{"isMatch":true}`},
		{"bare fence", "```\n[1,2]\n```\n", `[1,2]`},
		{"surrounding space", "  text  ", "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(context.Background(), config.APIsConfig{})
	assert.EqualError(t, err, "GenAI API key is required")
}
