// Package generation defines the provider-neutral contract for generating
// course content with an LLM: outlines, chapter bodies, section expansions and
// API key checks.
//
// The Client interface is the boundary between the application core and the
// provider packages under internal/platform. Everything that does not depend
// on a provider's wire format lives here: prompt templates, the model
// capability table, JSON repair for outlines, and the Pipeline that drives the
// outline, chapter and expansion flows over a provider's Completer.
package generation
