// Package editorws implements C9: a debounced, path-translating, ordered
// batching layer over internal/workspace for interactive editor clients
// (the VS Code adapter, or any similarly event-driven caller).
package editorws
