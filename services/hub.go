package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"trivialive/models"

	"github.com/gorilla/websocket"
)

// Hub fans game events out to the websocket clients watching each game. It
// is a delivery surface only: mutations never depend on a broadcast landing.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	live       *LiveState
}

type Client struct {
	hub    *Hub
	id     string
	socket *websocket.Conn
	send   chan []byte
	gameID uint
	userID uint // 0 for anonymous spectators
	name   string
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func NewHub(live *LiveState) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		live:       live,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("Client registered: %s for game %d (user %d: %s) - Total clients: %d",
				client.id, client.gameID, client.userID, client.name, len(h.clients))

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Printf("Client unregistered: %s for game %d (user %d: %s) - Total clients: %d",
					client.id, client.gameID, client.userID, client.name, len(h.clients))
			}
			h.mutex.Unlock()
		}
	}
}

func (h *Hub) BroadcastToGame(gameID uint, messageType string, payload interface{}) {
	message := Message{
		Type:    messageType,
		Payload: payload,
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	h.mutex.Lock()
	sent := 0
	for client := range h.clients {
		if client.gameID != gameID {
			continue
		}
		select {
		case client.send <- data:
			sent++
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
	h.mutex.Unlock()

	log.Printf("Broadcast %s to %d clients in game %d", messageType, sent, gameID)
}

func (h *Hub) BroadcastPlayerUpdate(gameID uint, participant models.Participant, action string) {
	h.BroadcastToGame(gameID, "player_update", map[string]interface{}{
		"action":      action, // "joined" or "left"
		"participant": participant,
	})
}

// SendGameStateSync pushes the current snapshot to one client, typically when
// it connects or reconnects.
func (h *Hub) SendGameStateSync(client *Client) {
	if h.live == nil {
		return
	}
	state, err := h.live.Current(client.gameID)
	if err != nil {
		log.Printf("Error getting game state for client %s: %v", client.id, err)
		return
	}

	message := Message{
		Type:    "game_state_sync",
		Payload: state,
	}
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling game state sync message: %v", err)
		return
	}

	h.mutex.Lock()
	select {
	case client.send <- data:
	default:
		close(client.send)
		delete(h.clients, client)
	}
	h.mutex.Unlock()
}

func (h *Hub) RegisterClient(conn *websocket.Conn, gameID uint, userID uint, name string) *Client {
	client := &Client{
		hub:    h,
		id:     generateClientID(),
		socket: conn,
		send:   make(chan []byte, 256),
		gameID: gameID,
		userID: userID,
		name:   name,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()

	return client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.socket.Close()
	}()

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	defer func() {
		c.socket.Close()
	}()

	for message := range c.send {
		w, err := c.socket.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}

		w.Write(message)

		if err := w.Close(); err != nil {
			return
		}
	}

	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case "ping":
		response := Message{
			Type:    "pong",
			Payload: "pong",
		}
		data, _ := json.Marshal(response)
		c.send <- data

	case "request_game_state":
		c.hub.SendGameStateSync(c)

	default:
		log.Printf("Unknown message type: %s from user %d (%s) in game %d",
			msg.Type, c.userID, c.name, c.gameID)
	}
}

func generateClientID() string {
	return fmt.Sprintf("client_%d", time.Now().UnixNano())
}
