package utils

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMeetingLink(t *testing.T) {
	id := uuid.New()
	link := GenerateMeetingLink(id)

	assert.True(t, strings.HasPrefix(link, JitsiBaseURL+"/skillazon-"+shortID(id)+"-"))
	assert.Len(t, strings.TrimPrefix(link, JitsiBaseURL+"/skillazon-"+shortID(id)+"-"), roomCodeLength)
	assert.NotEqual(t, link, GenerateMeetingLink(id))
}

func TestRoomBooking(t *testing.T) {
	id := uuid.New()

	got, ok := RoomBooking(ChatRoom(id))
	assert.True(t, ok)
	assert.Equal(t, id, got)

	for _, room := range []string{"", "lobby", "booking:", "booking:not-a-uuid", id.String()} {
		_, ok := RoomBooking(room)
		assert.False(t, ok, room)
	}
}
