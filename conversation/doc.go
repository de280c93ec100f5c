// Package conversation implements the conversation/tool-call loop.
//
// A Manager owns the message log of one conversation and the agent that is
// currently in charge. Each turn it enriches the log with the current
// agent's instruction and tool schemas, asks the completion service for the
// next assistant message and, while that message requests tools, hands the
// calls to an Executor and loops with the appended results:
//
//	AWAIT_RESPONSE -> CHECK_TOOLS -> TERMINAL
//	                              -> EXECUTE_TOOLS -> AWAIT_RESPONSE
//
// Tool calls of one assistant turn run sequentially in request order. A call
// to the transfer tool switches the current agent for the remaining calls of
// the batch and for every later turn.
package conversation
