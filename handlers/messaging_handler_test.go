package handlers

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage(t *testing.T) {
	sender := uuid.New()
	recipient := uuid.New()
	room := "booking:" + uuid.NewString()
	joined := map[string]bool{room: true}

	tests := []struct {
		name    string
		frame   ChatFrame
		problem string
	}{
		{"room message", ChatFrame{Room: room, Content: " hello "}, ""},
		{"direct message", ChatFrame{RecipientID: recipient.String(), Content: "hi"}, ""},
		{"blank content", ChatFrame{Room: room, Content: "   "}, "Message content is required"},
		{"too long", ChatFrame{Room: room, Content: strings.Repeat("a", maxChatMessageLength+1)}, "Message is too long"},
		{"no target", ChatFrame{Content: "hi"}, "A room or recipient is required"},
		{"room not joined", ChatFrame{Room: "booking:" + uuid.NewString(), Content: "hi"}, "Join the room before sending to it"},
		{"bad recipient", ChatFrame{RecipientID: "bob", Content: "hi"}, "Invalid recipient ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, problem := buildMessage(sender, tt.frame, joined)
			assert.Equal(t, tt.problem, problem)
			if tt.problem != "" {
				assert.Nil(t, msg)
				return
			}
			require.NotNil(t, msg)
			assert.Equal(t, sender, msg.SenderID)
			assert.Equal(t, strings.TrimSpace(tt.frame.Content), msg.Content)
			assert.NotEqual(t, uuid.Nil, msg.ID)
		})
	}
}
