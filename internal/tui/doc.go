// Package tui implements the interactive chat surface: a single-conversation
// Bubbletea app that feeds typed messages to the dispatcher and renders its
// replies as a scrolling exchange.
package tui
