package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.klb.dev/recall/internal/api"
	"go.klb.dev/recall/internal/view"
)

const (
	reconnectDelay = 250 * time.Millisecond
	maxReconnect   = 30 * time.Second
)

// EventKind tells what a watch Event carries.
type EventKind int

const (
	// EventConnected is sent once a stream is established.
	EventConnected EventKind = iota + 1
	// EventDisconnected is sent when an established stream, or an attempt
	// to establish one, fails. Err holds the cause.
	EventDisconnected
	// EventUpdate carries a history change in Update.
	EventUpdate
	// EventTracking carries the daemon's tracking switch in Tracking.
	EventTracking
	// EventSelected is sent after an entry was put on the clipboard.
	EventSelected
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventUpdate:
		return "update"
	case EventTracking:
		return "tracking"
	case EventSelected:
		return "selected"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is one notification from Watch.
type Event struct {
	Kind     EventKind
	Update   view.Update
	Tracking bool
	Err      error
}

// Watch keeps a Watch stream open until ctx is done, reconnecting with
// exponential back-off. The returned channel is closed when ctx is done.
// Disconnected is reported once per outage, not once per failed attempt.
func (c *Client) Watch(ctx context.Context) <-chan Event {
	out := make(chan Event, 16)
	go func() {
		defer close(out)
		c.watchLoop(ctx, out)
	}()
	return out
}

func (c *Client) watchLoop(ctx context.Context, out chan<- Event) {
	send := func(ev Event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	delay := reconnectDelay
	connected := true // report the first failure even before any success
	for {
		established, err := c.runStream(ctx, send)
		if ctx.Err() != nil {
			return
		}
		if established {
			delay = reconnectDelay
			connected = true
		}
		if connected {
			slog.Warn("history watch ended, reconnecting", "via", c.via, "err", err, "retry_in", delay)
			if !send(Event{Kind: EventDisconnected, Err: err}) {
				return
			}
			connected = false
		} else {
			slog.Debug("history watch retry failed", "err", err, "retry_in", delay)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if delay < maxReconnect {
			delay = min(delay*2, maxReconnect)
		}
	}
}

// runStream opens one Watch stream and relays its events until it fails.
// established reports whether at least one event arrived.
func (c *Client) runStream(ctx context.Context, send func(Event) bool) (established bool, err error) {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := c.rpc.Watch(sctx, &api.WatchRequest{Source: c.source})
	if err != nil {
		return false, fmt.Errorf("watch: %w", err)
	}
	for {
		ev, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return established, errors.New("daemon closed stream")
			}
			return established, err
		}
		if !established {
			established = true
			slog.Info("history watch connected", "via", c.via)
			if !send(Event{Kind: EventConnected}) {
				return true, ctx.Err()
			}
		}
		if !send(fromAPI(ev)) {
			return true, ctx.Err()
		}
	}
}

func fromAPI(ev *api.WatchEvent) Event {
	switch ev.Kind {
	case api.KindTracking:
		return Event{Kind: EventTracking, Tracking: ev.Tracking}
	case api.KindSelected:
		return Event{Kind: EventSelected}
	}
	u := view.Update{Action: view.ActionReplace, Target: view.TargetAll, Position: ev.Position}
	if ev.Action == api.ActionRemove {
		u.Action = view.ActionRemove
	}
	if ev.Target == api.TargetPosition {
		u.Target = view.TargetPosition
	}
	return Event{Kind: EventUpdate, Update: u}
}
