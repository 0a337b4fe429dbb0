package argparse

import "fmt"

var ordinals = [...]string{
	"First", "Second", "Third", "Fourth", "Fifth",
	"Sixth", "Seventh", "Eighth", "Ninth", "Tenth",
}

// Ordinal names a 0-based argument position for error messages.
func Ordinal(position int) string {
	if position >= 0 && position < len(ordinals) {
		return ordinals[position]
	}
	return "Some"
}

// ArgumentError is a bad-input failure detected before any socket is touched.
type ArgumentError struct {
	Position int
	Name     string
	Reason   string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s argument %q %s", Ordinal(e.Position), e.Name, e.Reason)
}
