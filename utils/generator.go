package utils

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

const (
	roomPrefix     = "booking:"
	JitsiBaseURL   = "https://meet.jit.si"
	roomCodeLength = 8
	letterBytes    = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// GenerateMeetingLink returns a fresh jitsi room URL for a booking.
func GenerateMeetingLink(bookingID uuid.UUID) string {
	return fmt.Sprintf("%s/skillazon-%s-%s", JitsiBaseURL, shortID(bookingID), randomCode(roomCodeLength))
}

// ChatRoom is the room name shared by a booking's two participants.
func ChatRoom(bookingID uuid.UUID) string {
	return roomPrefix + bookingID.String()
}

// RoomBooking reverses ChatRoom.
func RoomBooking(room string) (uuid.UUID, bool) {
	if !strings.HasPrefix(room, roomPrefix) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(room, roomPrefix))
	return id, err == nil
}

func shortID(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")[:12]
}

func randomCode(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letterBytes[rand.Intn(len(letterBytes))]
	}
	return string(b)
}
