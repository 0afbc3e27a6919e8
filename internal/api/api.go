// Package api defines the recall.v1.History wire contract: request and
// response messages, a JSON codec, the gRPC service descriptor and a typed
// client. The messages are plain Go structs; the service is registered by
// hand so the build needs no protoc step.
package api

import (
	"encoding/json"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Item is one history entry.
type Item struct {
	ID        string                 `json:"id"`
	Text      string                 `json:"text"`
	CreatedAt *timestamppb.Timestamp `json:"created_at,omitempty"`
}

type itemJSON struct {
	ID        string          `json:"id"`
	Text      string          `json:"text"`
	CreatedAt json.RawMessage `json:"created_at,omitempty"`
}

// MarshalJSON writes CreatedAt in its RFC 3339 form.
func (it Item) MarshalJSON() ([]byte, error) {
	ts, err := stampJSON(it.CreatedAt)
	if err != nil {
		return nil, err
	}
	return json.Marshal(itemJSON{ID: it.ID, Text: it.Text, CreatedAt: ts})
}

func (it *Item) UnmarshalJSON(data []byte) error {
	var raw itemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ts, err := parseStamp(raw.CreatedAt)
	if err != nil {
		return err
	}
	*it = Item{ID: raw.ID, Text: raw.Text, CreatedAt: ts}
	return nil
}

func stampJSON(ts *timestamppb.Timestamp) (json.RawMessage, error) {
	if ts == nil {
		return nil, nil
	}
	return protojson.Marshal(ts)
}

func parseStamp(data json.RawMessage) (*timestamppb.Timestamp, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	ts := &timestamppb.Timestamp{}
	if err := protojson.Unmarshal(data, ts); err != nil {
		return nil, err
	}
	return ts, nil
}

type SizeRequest struct{}

type SizeResponse struct {
	Size int `json:"size"`
}

type GetRequest struct {
	Index int `json:"index"`
}

type GetResponse struct {
	Item *Item `json:"item"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

type SearchResponse struct {
	Indices []int `json:"indices"`
}

type AddRequest struct {
	Text string `json:"text"`
}

type AddResponse struct {
	Item *Item `json:"item"`
}

type SelectRequest struct {
	ID string `json:"id"`
}

type SelectResponse struct {
	Item *Item `json:"item"`
}

type DeleteRequest struct {
	ID string `json:"id"`
}

type DeleteResponse struct{}

type ReplaceRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type ReplaceResponse struct {
	Item *Item `json:"item"`
}

type EmptyRequest struct{}

type EmptyResponse struct{}

type TrackRequest struct {
	Enabled bool `json:"enabled"`
}

type TrackResponse struct {
	Tracking bool `json:"tracking"`
}

type SwitchRequest struct {
	Name string `json:"name"`
}

type SwitchResponse struct {
	Name string `json:"name"`
}

type HistoriesRequest struct{}

type HistoriesResponse struct {
	Names   []string `json:"names"`
	Current string   `json:"current"`
}

type DeleteHistoryRequest struct {
	Name string `json:"name"`
}

type DeleteHistoryResponse struct{}

type StatusRequest struct{}

// WatcherInfo describes a client or peer watching the history.
type WatcherInfo struct {
	ID          string                 `json:"id"`
	Source      string                 `json:"source"`
	ConnectedAt *timestamppb.Timestamp `json:"connected_at,omitempty"`
}

type watcherJSON struct {
	ID          string          `json:"id"`
	Source      string          `json:"source"`
	ConnectedAt json.RawMessage `json:"connected_at,omitempty"`
}

// MarshalJSON writes ConnectedAt in its RFC 3339 form.
func (w WatcherInfo) MarshalJSON() ([]byte, error) {
	ts, err := stampJSON(w.ConnectedAt)
	if err != nil {
		return nil, err
	}
	return json.Marshal(watcherJSON{ID: w.ID, Source: w.Source, ConnectedAt: ts})
}

func (w *WatcherInfo) UnmarshalJSON(data []byte) error {
	var raw watcherJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ts, err := parseStamp(raw.ConnectedAt)
	if err != nil {
		return err
	}
	*w = WatcherInfo{ID: raw.ID, Source: raw.Source, ConnectedAt: ts}
	return nil
}

type StatusResponse struct {
	Version  string         `json:"version"`
	History  string         `json:"history"`
	Size     int            `json:"size"`
	Tracking bool           `json:"tracking"`
	Watchers []*WatcherInfo `json:"watchers"`
}

type WatchRequest struct {
	// Source names the watching client in status output.
	Source string `json:"source,omitempty"`
}

// Event kinds.
const (
	KindUpdate   = "update"
	KindTracking = "tracking"
	KindSelected = "selected"
)

// Update actions and targets.
const (
	ActionReplace = "replace"
	ActionRemove  = "remove"

	TargetAll      = "all"
	TargetPosition = "position"
)

// WatchEvent is pushed to Watch subscribers.
type WatchEvent struct {
	Kind     string `json:"kind"`
	Action   string `json:"action,omitempty"`
	Target   string `json:"target,omitempty"`
	Position int    `json:"position,omitempty"`
	Tracking bool   `json:"tracking,omitempty"`
}
