// Package channelstore persists the channel substrate: named communication
// channels, agent channel identities (profiles), and request messages
// correlated by generated request identifiers.
package channelstore

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("channelstore: not found")

type MessageStatus string

const (
	StatusPending   MessageStatus = "pending"
	StatusDelivered MessageStatus = "delivered"
	StatusTimeout   MessageStatus = "timeout"
	StatusFailed    MessageStatus = "failed"
)

type Channel struct {
	ID          string
	WorkspaceID string
	AgentSlug   string
	Name        string
}

// Profile is an agent's channel identity within a workspace. An agent
// without a profile cannot post to channels.
type Profile struct {
	ID          string
	WorkspaceID string
	AgentSlug   string
	DisplayName string
}

// Message is a posted channel request. It is keyed by the request id, is
// written by at most two parties (poster and responder), and is never
// deleted by this subsystem.
type Message struct {
	RequestID string
	ChannelID string
	SenderID  string
	Body      string
	Status    MessageStatus
	CreatedAt time.Time
}

type Store interface {
	AgentChannel(ctx context.Context, workspaceID, agentSlug string) (*Channel, error)
	AgentProfile(ctx context.Context, workspaceID, agentSlug string) (*Profile, error)
	PostMessage(ctx context.Context, msg *Message) error
	UpdateMessageStatus(ctx context.Context, requestID string, status MessageStatus) error
}
