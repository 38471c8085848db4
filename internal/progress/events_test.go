// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "started", EventStarted.String())
	assert.Equal(t, "completed", EventCompleted.String())
	assert.Equal(t, "failed", EventFailed.String())
	assert.Equal(t, "unknown", EventType(99).String())
}

func TestChannelReporterDeliversEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	cr := NewChannelReporter(context.Background(), 4)
	defer cr.Close()

	want := Event{Device: "sw1", Host: "10.0.0.1", Type: EventCompleted, Timestamp: time.Now()}
	cr.Report(want)

	select {
	case got := <-cr.Events():
		assert.Equal(t, want.Device, got.Device)
		assert.Equal(t, want.Type, got.Type)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestChannelReporterDropsWhenFull(t *testing.T) {
	cr := NewChannelReporter(context.Background(), 1)
	defer cr.Close()

	cr.Report(Event{Device: "a"})
	cr.Report(Event{Device: "b"}) // dropped, buffer full

	got := <-cr.Events()
	assert.Equal(t, "a", got.Device)

	select {
	case e, ok := <-cr.Events():
		require.False(t, ok, "unexpected extra event: %v", e)
	default:
	}
}

func TestChannelReporterClosedDrops(t *testing.T) {
	cr := NewChannelReporter(context.Background(), 1)
	cr.Close()

	// Must not panic or block.
	cr.Report(Event{Device: "late"})
}

func TestNullReporter(t *testing.T) {
	nr := &NullReporter{}
	nr.Report(Event{})
	nr.Close()
}
