// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/tunegraph/internal/batch"
)

// ErrInvalidEvent is returned for payloads that can never be processed.
var ErrInvalidEvent = errors.New("invalid event")

// Metadata keys set on every trigger message.
const (
	MetadataEventType     = "event_type"
	MetadataCorrelationID = "correlation_id"
)

// EventTypeProfileUpdated identifies ProfileUpdated payloads.
const EventTypeProfileUpdated = "profile.updated"

// ProfileUpdated asks for a recompute after a user's profile changed.
// Mode is "incremental" or "full".
type ProfileUpdated struct {
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	Mode       string    `json:"mode"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewProfileUpdated builds an event with a fresh id.
func NewProfileUpdated(userID, mode string) *ProfileUpdated {
	return &ProfileUpdated{
		EventID:    uuid.New().String(),
		UserID:     userID,
		Mode:       mode,
		OccurredAt: time.Now().UTC(),
	}
}

// Validate checks the required fields.
func (e *ProfileUpdated) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("%w: missing event_id", ErrInvalidEvent)
	}
	mode, err := batch.ParseMode(e.Mode)
	if err != nil {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidEvent, e.Mode)
	}
	if mode == batch.ModeIncremental && e.UserID == "" {
		return fmt.Errorf("%w: incremental event without user_id", ErrInvalidEvent)
	}
	return nil
}

// ToMessage serializes the event. The watermill message UUID is the event id,
// which is also the deduplication key.
func (e *ProfileUpdated) ToMessage() (*message.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal profile updated event: %w", err)
	}
	msg := message.NewMessage(e.EventID, payload)
	msg.Metadata.Set(MetadataEventType, EventTypeProfileUpdated)
	return msg, nil
}

// DecodeProfileUpdated parses and validates a trigger message. When the
// payload parses but fails validation, the event is returned with the error.
func DecodeProfileUpdated(msg *message.Message) (*ProfileUpdated, error) {
	var e ProfileUpdated
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if e.EventID == "" {
		e.EventID = msg.UUID
	}
	if err := e.Validate(); err != nil {
		return &e, err
	}
	return &e, nil
}
