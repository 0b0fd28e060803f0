// Package conversation orchestrates chat turns between the HTTP layer, the
// conversation store, and the analyzer.
//
// # Service
//
// The Service coordinates one turn per call:
//
//	svc := conversation.New(store, analyzerClient, window, timeout, logger)
//	result, err := svc.HandleTurn(ctx, conversationID, text)
//
// A turn reads the retained history, trims it to the context window, invokes
// the analyzer under a timeout, then appends the user message followed by
// the assistant reply. The window is computed before the appends, so the
// current question is never part of its own context.
//
// # Failure behavior
//
//   - Analyzer failure: nothing is persisted; the result carries
//     FallbackReply and the error wraps the analyzer sentinel.
//   - Persistence failure after a computed reply: the reply is still
//     returned with the error. A user message without its reply may remain
//     in the log; this bounded inconsistency is accepted.
//
// The service holds no per-conversation state, so concurrent turns on
// different conversations never contend. Ordering within one conversation
// is the store's responsibility.
package conversation
