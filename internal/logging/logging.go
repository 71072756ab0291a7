// Package logging gates the diagnostic verbosity of the treefrog core.
package logging

// Level selects how much diagnostic output a component prints.
type Level int

const (
	// Nil suppresses all diagnostics.
	Nil Level = iota
	// Standard prints a one-line banner per major phase.
	Standard
	// Performance additionally times each phase and prints its duration.
	Performance
)

// Mode is a process-wide default level. Components take a Level explicitly
// so they stay testable without depending on process-wide state; the CLI
// passes the level parsed from its LoggingMode config field and does not
// read or set Mode.
var Mode = Standard
