// Package core provides the foundational domain types shared by every layer of
// agentsquad. It defines:
//
//   - Messages (the append-only conversation log entries) and tool calls
//   - Tool schemas advertised to the remote completion service
//   - Stream events decoded from a streamed completion
//   - The per-turn viewer scratch space and the ToolContext handed to tools
//   - Sentinel and typed errors used across packages
//   - TurnLimiter bounding completion requests per user message
//
// The package has no knowledge of agents, transports or orchestration; those
// live in the agent, completion and conversation packages respectively.
package core
