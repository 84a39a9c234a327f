package port

type Sink interface {
	// Plain line with newline
	WriteLine(line string) error
	// Rendered table
	WriteTable(headers []string, rows [][]string) error
	// Normal newline
	NewLine() error
}
