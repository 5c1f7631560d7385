// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

// Package websocket pushes live dataset updates to connected dashboard
// clients.
//
// The Hub owns the set of connected clients and fans broadcast messages out
// to them. Each HTTP upgrade produces a Client that runs a read pump and a
// write pump; the hub never touches the connection directly. Messages are
// typed JSON envelopes:
//
//	{"type": "dataset_reloaded", "data": {...}}
//	{"type": "stats_update", "data": {...}}
//	{"type": "ping"} / {"type": "pong"}
//
// dataset_reloaded is broadcast after a CSV reload commits, telling clients
// to refetch their charts. Clients with a full send buffer are evicted so a
// single stalled browser cannot block delivery to the rest.
//
// The hub is run under suture supervision via RunWithContext, which closes
// all clients and returns when the context is canceled.
package websocket
