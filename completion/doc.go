// Package completion is the transport boundary to the remote completion
// service.
//
// A Service sends the enriched message list plus tool schemas and returns
// either one assistant message (SendMessage) or a Stream of decoded events
// (StreamMessage). Client is the HTTP implementation; the openai and
// anthropic subpackages provide Services backed by vendor SDKs.
//
// Streaming responses are chunked text of the form
//
//	data: {"type":"content","content":"Hel"}\n\n
//
// Decoder turns arbitrarily split chunks into core.StreamEvent values; Stream
// exposes them as a pull iterator and Dispatch adapts that iterator to
// callback Handlers.
package completion
