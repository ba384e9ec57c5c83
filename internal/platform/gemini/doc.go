// Package gemini provides an implementation of the generation.Client interface
// that uses Google's Gemini API for course outlines, chapters and expansions.
//
// This package is an infrastructure adapter: it translates the provider-neutral
// completions of the generation pipeline into Gemini GenerateContent calls and
// maps Gemini failures back onto the generation error taxonomy.
//
// Key components:
//
// 1. GeminiGenerator:
//   - Embeds generation.Pipeline for prompts, parsing and the expansion loop
//   - Adds VerifyAPIKey
//
// 2. Error Handling:
//   - Retries transport failures for outlines and chapters
//   - Classifies genai.APIError codes as authentication or provider failures
//   - Reports safety-filter blocks as generation.ErrContentBlocked
//
// The package depends on Google's google.golang.org/genai client library.
package gemini
