// Package markdown normalizes model-generated Markdown and splits chapters
// into sections small enough to expand one request at a time.
package markdown
