package delegation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dreamteam-ai/dispatch/pkg/channelstore"
	"github.com/dreamteam-ai/dispatch/pkg/logger"
	"github.com/dreamteam-ai/dispatch/pkg/prompt"
	"github.com/dreamteam-ai/dispatch/pkg/team"
)

// timeoutError is the fixed channel-path timeout failure message.
const timeoutError = "Specialist response timeout"

// ChannelExecutor delegates through the persisted channel substrate: it
// posts a uniquely-identified request to the target agent's channel and
// waits for a correlated response from the out-of-process responder. When
// the target agent has no channel the delegation degrades to the inline
// executor; every other missing prerequisite fails closed.
type ChannelExecutor struct {
	store   channelstore.Store
	inline  *InlineExecutor
	waiter  *ResponseWaiter
	timeout time.Duration
}

func NewChannelExecutor(store channelstore.Store, inline *InlineExecutor, timeout time.Duration) *ChannelExecutor {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChannelExecutor{
		store:   store,
		inline:  inline,
		waiter:  NewResponseWaiter(),
		timeout: timeout,
	}
}

func (e *ChannelExecutor) Execute(ctx context.Context, snap *team.Snapshot, in Input, sess Session) Result {
	agent, ok := snap.FindAgent(in.AgentSlug)
	if !ok {
		return failure("", in.AgentSlug, "Agent \""+in.AgentSlug+"\" not found or is disabled")
	}

	channel, err := e.store.AgentChannel(ctx, sess.WorkspaceID, in.AgentSlug)
	if err != nil {
		if !errors.Is(err, channelstore.ErrNotFound) {
			logger.WarnCF("delegation", "Channel lookup failed, falling back to inline",
				map[string]any{"agent": in.AgentSlug, "error": err.Error()})
		}
		return e.inline.Execute(ctx, snap, in, sess)
	}

	profile, err := e.store.AgentProfile(ctx, sess.WorkspaceID, sess.HeadAgentSlug)
	if err != nil {
		return failure(agent.Name, agent.Slug, "head agent profile not found")
	}

	requestID := uuid.NewString()
	body := prompt.ComposeDefault(in.Task, in.Context)

	waitCh := e.waiter.Register(requestID)
	err = e.store.PostMessage(ctx, &channelstore.Message{
		RequestID: requestID,
		ChannelID: channel.ID,
		SenderID:  profile.ID,
		Body:      body,
		Status:    channelstore.StatusPending,
	})
	if err != nil {
		e.waiter.Cleanup(requestID)
		return failure(agent.Name, agent.Slug, "failed to post channel message: "+err.Error())
	}

	logger.InfoCF("delegation", "Posted channel request",
		map[string]any{
			"agent":      agent.Slug,
			"channel":    channel.ID,
			"request_id": requestID,
			"workspace":  sess.WorkspaceID,
		})

	select {
	case content := <-waitCh:
		return Result{
			Success:   true,
			AgentName: agent.Name,
			AgentSlug: agent.Slug,
			Response:  content,
		}
	case <-time.After(e.timeout):
		e.waiter.Cleanup(requestID)
		// Compensating write; its own failure is logged, not surfaced.
		if err := e.store.UpdateMessageStatus(ctx, requestID, channelstore.StatusTimeout); err != nil {
			logger.WarnCF("delegation", "Failed to mark request as timed out",
				map[string]any{"request_id": requestID, "error": err.Error()})
		}
		return failure(agent.Name, agent.Slug, timeoutError)
	case <-ctx.Done():
		e.waiter.Cleanup(requestID)
		return failure(agent.Name, agent.Slug, ctx.Err().Error())
	}
}

// DeliverResponse is called when the responder produces a reply for a
// posted request. A late delivery after timeout only records the delivered
// status; the response body is dropped because nobody is waiting.
func (e *ChannelExecutor) DeliverResponse(ctx context.Context, requestID, content string) error {
	delivered := e.waiter.Deliver(requestID, content)
	if !delivered {
		return nil
	}
	if err := e.store.UpdateMessageStatus(ctx, requestID, channelstore.StatusDelivered); err != nil {
		logger.WarnCF("delegation", "Failed to mark request as delivered",
			map[string]any{"request_id": requestID, "error": err.Error()})
	}
	return nil
}
