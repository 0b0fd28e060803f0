// Package gateway hosts the securebot HTTP API.
//
// # Endpoints
//
// All bodies are JSON; conversation identity comes from the request body or
// the ?id query parameter and defaults to the configured id:
//
//   - POST   /api/chat             one conversation turn
//   - GET    /api/history          retained log, oldest first
//   - DELETE /api/clear            drop a conversation's log
//   - POST   /api/analyze-traffic  single-shot traffic classification
//   - POST   /api/generate-report  single-shot incident report (markdown + HTML)
//   - GET    /api/health           liveness probe
//
// Every response carries permissive CORS headers and preflight OPTIONS
// requests are answered directly.
//
// # Error mapping
//
// Failed turns never leak raw collaborator errors: analyzer failures return
// 502 with the fallback reply in the body, storage failures return 500/503,
// and a reply computed before a persistence failure is still delivered.
//
// # Lifecycle
//
// New opens the store and builds the analyzer client and conversation
// service; Run serves until the context is cancelled, then drains in-flight
// requests and closes the store.
package gateway
