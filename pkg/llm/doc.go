// Package llm adapts hosted model APIs to the four capabilities the workflows use:
// chat completion, image description, speech transcription and speech synthesis.
//
// Invariants:
// - Calls are never retried; the caller turns a failure into a user notice.
// - Every call is bounded by the configured timeout and recorded as an adapter metric.
// - The system prompt is passed separately from the ordered turns.
//
// Usage:
//
//	adapters, _ := llm.New(llm.Config{Provider: "openai", APIKey: key, BaseURL: "https://api.groq.com/openai/v1/"})
//	reply, _ := adapters.Chat.Complete(ctx, systemPrompt, []llm.Message{{Role: "user", Content: "hi"}})
package llm
