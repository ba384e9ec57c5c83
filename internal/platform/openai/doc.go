// Package openai implements generation.Client for the OpenAI chat API.
//
// Outline and chapter requests walk a fallback chain of high-tier models:
// the account's /v1/models listing is intersected with AcceptableModels,
// the preferred model is tried first and up to five models are tried in
// round-robin order. When every one of them fails, the EmergencyModels that
// the account can use are tried and their output carries a quality warning.
// Expansion requests use the preferred model only; the generation pipeline
// owns their attempt loop.
package openai
