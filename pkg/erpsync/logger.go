package erpsync

// Logger receives the progress and diagnostics of a sync pass.
// Arguments are fmt verbs; implementations must tolerate concurrent calls.
type Logger interface {
	// Verbose is shown only with --verbose.
	Verbose(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}
