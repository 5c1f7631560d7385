// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package websocket

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

// newTestClient builds a client without a network connection. The hub only
// touches the send channel, so tests can drive everything through it.
func newTestClient(hub *Hub, buffer int) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		hub:  hub,
		send: make(chan Message, buffer),
	}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- hub.RunWithContext(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("RunWithContext returned %v, want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("hub did not stop after cancel")
		}
	})

	return hub, cancel
}

func waitForClientCount(t *testing.T, hub *Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.GetClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", hub.GetClientCount(), want)
}

func TestHubRegisterUnregister(t *testing.T) {
	hub, _ := startHub(t)

	client := newTestClient(hub, 4)
	hub.Register <- client
	waitForClientCount(t, hub, 1)

	hub.Unregister <- client
	waitForClientCount(t, hub, 0)

	// Unregister closes the send channel
	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected send channel to be closed")
		}
	case <-time.After(time.Second):
		t.Error("send channel not closed after unregister")
	}
}

func TestHubBroadcastDatasetReloaded(t *testing.T) {
	hub, _ := startHub(t)

	client := newTestClient(hub, 4)
	hub.Register <- client
	waitForClientCount(t, hub, 1)

	hub.BroadcastDatasetReloaded(DatasetReloadedData{
		HourlyRows: 17379,
		DailyRows:  731,
		MergedRows: 731,
		Version:    2,
		DurationMs: 1200,
	})

	select {
	case msg := <-client.send:
		if msg.Type != MessageTypeDatasetReloaded {
			t.Errorf("message type = %s, want %s", msg.Type, MessageTypeDatasetReloaded)
		}
		data, ok := msg.Data.(DatasetReloadedData)
		if !ok {
			t.Fatalf("data has type %T", msg.Data)
		}
		if data.MergedRows != 731 || data.Version != 2 {
			t.Errorf("unexpected payload: %+v", data)
		}
		if data.Timestamp == "" {
			t.Error("timestamp not populated")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered to client")
	}
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	hub, _ := startHub(t)

	c1 := newTestClient(hub, 4)
	c2 := newTestClient(hub, 4)
	hub.Register <- c1
	hub.Register <- c2
	waitForClientCount(t, hub, 2)

	hub.BroadcastStatsUpdate(3292679, "2012-12-31")

	for _, c := range []*Client{c1, c2} {
		select {
		case msg := <-c.send:
			if msg.Type != MessageTypeStatsUpdate {
				t.Errorf("message type = %s, want %s", msg.Type, MessageTypeStatsUpdate)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("client did not receive stats_update")
		}
	}
}

func TestHubEvictsSlowClient(t *testing.T) {
	hub, _ := startHub(t)

	// Zero-buffer client with no reader: every send fails immediately
	slow := newTestClient(hub, 0)
	healthy := newTestClient(hub, 4)
	hub.Register <- slow
	hub.Register <- healthy
	waitForClientCount(t, hub, 2)

	hub.BroadcastJSON(MessageTypeStatsUpdate, nil)

	waitForClientCount(t, hub, 1)
	select {
	case msg := <-healthy.send:
		if msg.Type != MessageTypeStatsUpdate {
			t.Errorf("message type = %s", msg.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("healthy client did not receive message")
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- hub.RunWithContext(ctx)
	}()

	client := newTestClient(hub, 4)
	hub.Register <- client
	waitForClientCount(t, hub, 1)

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	if got := hub.GetClientCount(); got != 0 {
		t.Errorf("client count after shutdown = %d, want 0", got)
	}
	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected closed send channel")
		}
	default:
		t.Error("send channel still open after shutdown")
	}
}

func TestMarshalMessage(t *testing.T) {
	raw, err := MarshalMessage(Message{Type: MessageTypePong})
	if err != nil {
		t.Fatalf("MarshalMessage: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != "pong" {
		t.Errorf("type = %v, want pong", decoded["type"])
	}
}

func TestGetShutdownReason(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	if got := getShutdownReason(canceled); got != ShutdownReasonContextCanceled {
		t.Errorf("reason = %s, want %s", got, ShutdownReasonContextCanceled)
	}

	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()
	if got := getShutdownReason(expired); got != ShutdownReasonContextDeadline {
		t.Errorf("reason = %s, want %s", got, ShutdownReasonContextDeadline)
	}
}
