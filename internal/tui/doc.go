// Package tui renders the progress of a sync pass.
//
// Interactive terminals get a bubbletea view with a spinner and a progress
// bar; everything else gets ConsoleReporter lines. Both implement
// erpsync.ProgressReporter. RenderReport formats the final report either way.
package tui
