// Package analyzer calls the external LLM inference endpoint.
//
// The Client speaks the OpenAI-compatible chat-completions API against a
// configurable base URL, so any provider implementing that shape works.
// Three entry points cover the service's analysis flavors:
//
//   - Generate: security Q&A with optional conversation history folded into
//     the user prompt as "role: content" lines
//   - AnalyzeTraffic: single-shot traffic-pattern classification
//   - GenerateIncidentReport: single-shot markdown incident report
//
// Failures map to two sentinels checked with errors.Is: ErrTimeout when the
// caller's context deadline fires, ErrUnavailable for everything else
// (transport errors, non-200 statuses, malformed or empty completions).
// The client holds no state between calls and no retry logic.
package analyzer
