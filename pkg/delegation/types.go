// Package delegation executes bounded single-task agent invocations on
// behalf of a head agent, either inline in-process or through a persisted
// channel with an out-of-process responder.
package delegation

// Input is the head agent's delegation request. It is consumed exactly
// once: the subsystem never re-invokes the target agent for the same input.
type Input struct {
	AgentSlug string `json:"agent_slug"`
	Task      string `json:"task"`
	Context   string `json:"context,omitempty"`
}

// Session is the conversational context the delegation runs under.
type Session struct {
	WorkspaceID    string `json:"workspace_id"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
	HeadAgentSlug  string `json:"head_agent_slug"`
}

type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Result is produced exactly once per delegation attempt and is never
// partially filled: either a successful response, or a failure with an
// error string and an empty response.
type Result struct {
	Success   bool   `json:"success"`
	AgentName string `json:"agentName"`
	AgentSlug string `json:"agentSlug"`
	Response  string `json:"response"`
	Error     string `json:"error,omitempty"`
	Usage     *Usage `json:"usage,omitempty"`
}

func failure(agentName, agentSlug, errMsg string) Result {
	return Result{
		Success:   false,
		AgentName: agentName,
		AgentSlug: agentSlug,
		Response:  "",
		Error:     errMsg,
	}
}
