package handlers

import (
	"context"
	"log"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/anjiri1684/skillazon/middleware"
	"github.com/anjiri1684/skillazon/models"
	"github.com/anjiri1684/skillazon/store"
	"github.com/anjiri1684/skillazon/utils"
	"github.com/anjiri1684/skillazon/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	maxChatMessageLength = 2000
	defaultHistoryLimit  = 50
	maxHistoryLimit      = 200
)

// ChatFrame is every frame a chat client sends after authenticating.
type ChatFrame struct {
	Type        string `json:"type"`
	Token       string `json:"token,omitempty"`
	Room        string `json:"room,omitempty"`
	RecipientID string `json:"recipient_id,omitempty"`
	Content     string `json:"content,omitempty"`
}

// GetBookingMessages returns the chat history of a booking to its participants.
func (h *Handler) GetBookingMessages(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	bookingID, ok := paramUUID(c, "bookingId")
	if !ok {
		return badRequest(c, "Invalid booking ID")
	}
	if _, err := h.Bookings.GetBooking(c.UserContext(), bookingID, userID, middleware.IsAdmin(c)); err != nil {
		return respondError(c, err)
	}

	limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil || limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	var messages []models.Message
	err = h.Store.View(c.UserContext(), func(tx store.Tx) error {
		var err error
		messages, err = tx.ListMessages(c.UserContext(), utils.ChatRoom(bookingID), limit)
		return err
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(messages)
}

// ServeWs authenticates the first frame, then relays chat frames through the
// hub. After authentication only the client's write pump touches the socket.
func (h *Handler) ServeWs(c *websocketcontrib.Conn) {
	ctx := context.Background()

	var auth ChatFrame
	if err := c.ReadJSON(&auth); err != nil || auth.Type != "auth" {
		log.Printf("WebSocket auth failed: invalid or missing auth message: %v", err)
		_ = c.WriteJSON(fiber.Map{"error": "Invalid or missing auth message"})
		c.Close()
		return
	}
	userID, err := h.Users.ParseToken(auth.Token)
	if err != nil {
		log.Printf("WebSocket auth failed: %v", err)
		_ = c.WriteJSON(fiber.Map{"error": "Invalid token"})
		c.Close()
		return
	}

	client := websocket.NewClient(userID, c)
	pumpDone := make(chan struct{})
	go func() {
		client.WritePump()
		close(pumpDone)
	}()
	h.Hub.Register(client)
	log.Printf("WebSocket client authenticated: %s", userID)
	defer func() {
		h.Hub.Unregister(client)
		client.Close()
		c.Close()
		<-pumpDone
	}()

	joined := make(map[string]bool)
	for {
		var frame ChatFrame
		if err := c.ReadJSON(&frame); err != nil {
			if websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseNormalClosure) {
				log.Printf("WebSocket closed for client %s", userID)
			} else {
				log.Printf("WebSocket read error for client %s: %v", userID, err)
			}
			return
		}

		switch frame.Type {
		case "join":
			if !h.canJoin(ctx, userID, frame.Room) {
				client.Send(fiber.Map{"error": "Cannot join room"})
				continue
			}
			joined[frame.Room] = true
			h.Hub.Join(client, frame.Room)
			client.Send(fiber.Map{"type": "joined", "room": frame.Room})
		case "message":
			msg, problem := buildMessage(userID, frame, joined)
			if problem != "" {
				client.Send(fiber.Map{"error": problem})
				continue
			}
			err := h.Store.Transaction(ctx, func(tx store.Tx) error {
				return tx.CreateMessage(ctx, msg)
			})
			if err != nil {
				log.Printf("⚠️ Failed to save message from %s: %v", userID, err)
			}
			h.Hub.Broadcast(ctx, msg)
		default:
			client.Send(fiber.Map{"error": "Unknown frame type"})
		}
	}
}

// canJoin allows a user into a booking room only when they take part in it.
func (h *Handler) canJoin(ctx context.Context, userID uuid.UUID, room string) bool {
	bookingID, ok := utils.RoomBooking(room)
	if !ok {
		return false
	}
	_, err := h.Bookings.GetBooking(ctx, bookingID, userID, false)
	return err == nil
}

func buildMessage(senderID uuid.UUID, frame ChatFrame, joined map[string]bool) (*models.Message, string) {
	content := strings.TrimSpace(frame.Content)
	if content == "" {
		return nil, "Message content is required"
	}
	if utf8.RuneCountInString(content) > maxChatMessageLength {
		return nil, "Message is too long"
	}

	if frame.Room == "" && frame.RecipientID == "" {
		return nil, "A room or recipient is required"
	}
	if frame.Room != "" && !joined[frame.Room] {
		return nil, "Join the room before sending to it"
	}

	msg := &models.Message{ID: uuid.New(), Room: frame.Room, SenderID: senderID, Content: content}
	if frame.RecipientID != "" {
		recipient, err := uuid.Parse(frame.RecipientID)
		if err != nil {
			return nil, "Invalid recipient ID"
		}
		msg.RecipientID = &recipient
	}
	return msg, ""
}
