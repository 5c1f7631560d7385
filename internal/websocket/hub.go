// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/velodash/velodash/internal/logging"
	"github.com/velodash/velodash/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	// This is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for WebSocket communication
const (
	MessageTypePing            = "ping"
	MessageTypePong            = "pong"
	MessageTypeDatasetReloaded = "dataset_reloaded"
	MessageTypeStatsUpdate     = "stats_update"
)

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext starts the hub with context support for graceful shutdown.
// This method is designed for use with suture supervision.
//
// When the context is canceled all connected clients are closed and the
// method returns ctx.Err(), so a supervisor restart never leaves orphaned
// connections behind.
//
// Channel selection is priority ordered: shutdown first, then client
// lifecycle events, then broadcasts. Client state is therefore always
// consistent before a message fans out.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: Check for shutdown (non-blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: Handle client lifecycle events (non-blocking check)
		select {
		case client := <-h.Register:
			h.registerClient(client)
			continue
		case client := <-h.Unregister:
			h.unregisterClient(client)
			continue
		default:
			// No lifecycle events pending
		}

		// Priority 3: Handle broadcast messages or wait for any event (blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("websocket client disconnected")
}

// logGracefulShutdown closes all connected clients and logs structured
// shutdown information. ctx.Err() is not logged as an error because
// cancellation is expected behavior during graceful shutdown.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()

	h.closeAllClients()

	reason := getShutdownReason(ctx)

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(reason)).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

// getShutdownReason determines the shutdown reason from the context error.
func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.Canceled:
		return ShutdownReasonContextCanceled
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// broadcastToClients sends a message to all connected clients.
// Clients are sorted by ID so delivery order is stable, and clients whose
// send buffer is full are evicted rather than allowed to stall the hub.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	// Track clients to remove (can't modify map during iteration)
	var toRemove []*Client

	for _, client := range clients {
		select {
		case client.send <- message:
			metrics.WSMessagesSent.Inc()
		default:
			// Channel full or closed, mark for removal
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
	}
	if len(toRemove) > 0 {
		metrics.WSConnections.Set(float64(len(h.clients)))
		logging.Warn().Int("evicted", len(toRemove)).Msg("evicted slow websocket clients")
	}
}

// closeAllClients closes all connected WebSocket clients in ID order.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WSConnections.Set(0)
	logging.Info().Msg("closed all websocket clients during shutdown")
}

// DatasetReloadedData represents data sent with dataset_reloaded message
type DatasetReloadedData struct {
	Timestamp  string `json:"timestamp"`
	HourlyRows int64  `json:"hourly_rows"`
	DailyRows  int64  `json:"daily_rows"`
	MergedRows int64  `json:"merged_rows"`
	Version    int64  `json:"version"`
	DurationMs int64  `json:"duration_ms"`
}

// BroadcastDatasetReloaded notifies all clients that the dataset has been
// reloaded and charts should be refreshed.
func (h *Hub) BroadcastDatasetReloaded(data DatasetReloadedData) {
	if data.Timestamp == "" {
		data.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	message := Message{
		Type: MessageTypeDatasetReloaded,
		Data: data,
	}

	select {
	case h.broadcast <- message:
		logging.Info().
			Int("clients", h.GetClientCount()).
			Int64("merged_rows", data.MergedRows).
			Int64("version", data.Version).
			Msg("broadcast dataset_reloaded")
	default:
		logging.Warn().Msg("broadcast channel full, dropping dataset_reloaded message")
	}
}

// StatsUpdateData represents data sent with stats_update message
type StatsUpdateData struct {
	Timestamp    string `json:"timestamp"`
	TotalRentals int64  `json:"total_rentals"`
	LastDate     string `json:"last_date,omitempty"`
}

// BroadcastStatsUpdate notifies all clients that summary stats have changed
func (h *Hub) BroadcastStatsUpdate(totalRentals int64, lastDate string) {
	data := StatsUpdateData{
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		TotalRentals: totalRentals,
		LastDate:     lastDate,
	}

	message := Message{
		Type: MessageTypeStatsUpdate,
		Data: data,
	}

	select {
	case h.broadcast <- message:
		logging.Info().Int("clients", h.GetClientCount()).Int64("total_rentals", totalRentals).Msg("broadcast stats_update")
	default:
		logging.Warn().Msg("broadcast channel full, dropping stats_update message")
	}
}

// BroadcastJSON sends an arbitrary typed message to all connected clients
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	message := Message{
		Type: messageType,
		Data: data,
	}

	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping JSON message")
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
