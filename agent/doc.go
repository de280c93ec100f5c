// Package agent contains the agents that take turns answering in a squad
// conversation and the shared Context they are registered in.
//
// An Agent contributes two things to every request sent to the completion
// service: a system instruction and a list of tools. Every agent also exposes
// the reserved transfer_to_agent tool, which hands the conversation to
// another agent registered in the same Context.
//
// Variants:
//   - BaseAgent: generic agent configured through options (task, description,
//     instruction, tools)
//   - TriageAgent: routes the conversation to one of a roster of specialists
//
// Design principles:
//   - No hidden global state; agents reach the registry and the viewer
//     scratch space through the Context they were bound to
//   - Extensibility; embed *BaseAgent and override Instructions
package agent
