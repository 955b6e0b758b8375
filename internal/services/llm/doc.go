// Package llm wraps the OpenAI chat completion API for meeting synthesis.
// Requests run in JSON mode at low temperature; malformed payloads and
// transient HTTP failures are retried with exponential backoff, while
// credential rejections fail immediately.
package llm
