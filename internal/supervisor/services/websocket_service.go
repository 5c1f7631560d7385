// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package services

import (
	"context"
)

// ContextHub matches *websocket.Hub's RunWithContext method without
// importing the websocket package.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// WebSocketHubService wraps the WebSocket hub as a supervised service.
// RunWithContext already follows the suture.Service pattern, so this
// wrapper only delegates and provides a name for logging.
type WebSocketHubService struct {
	hub  ContextHub
	name string
}

// NewWebSocketHubService creates a new WebSocket hub service wrapper.
func NewWebSocketHubService(hub ContextHub) *WebSocketHubService {
	return &WebSocketHubService{
		hub:  hub,
		name: "websocket-hub",
	}
}

// Serve implements suture.Service by delegating to hub.RunWithContext.
func (w *WebSocketHubService) Serve(ctx context.Context) error {
	return w.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for supervisor logging.
func (w *WebSocketHubService) String() string {
	return w.name
}
