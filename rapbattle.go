package rapbattle

import (
	"errors"
	"fmt"
)

// Default artifact names in the working directory. Each run overwrites them.
const (
	DefaultLyrics    = "rapbattle.txt"
	DefaultOriginal  = "rapbattle_original.mp3"
	DefaultMetadata  = "rapbattle_metadata.json"
	DefaultFirst     = "female_section.mp3"
	DefaultSecond    = "male_section.mp3"
	DefaultConverted = "male_section_converted.mp3"
	DefaultFinal     = "rapbattle_final.mp3"
)

// Files holds the paths used to hand artifacts from one stage to the next.
type Files struct {
	Lyrics    string
	Original  string
	Metadata  string
	First     string
	Second    string
	Converted string
	Final     string
}

// DefaultFiles returns the file names used when no flag overrides them.
func DefaultFiles() Files {
	return Files{
		Lyrics:    DefaultLyrics,
		Original:  DefaultOriginal,
		Metadata:  DefaultMetadata,
		First:     DefaultFirst,
		Second:    DefaultSecond,
		Converted: DefaultConverted,
		Final:     DefaultFinal,
	}
}

// HintError attaches a remediation hint for the operator to an error.
type HintError struct {
	Err  error
	Hint string
}

func (e *HintError) Error() string {
	return e.Err.Error()
}

func (e *HintError) Unwrap() error {
	return e.Err
}

// WithHint wraps err with a hint. A nil error stays nil.
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	var h *HintError
	if errors.As(err, &h) {
		return err
	}
	return &HintError{Err: err, Hint: hint}
}

// Hint returns the hint attached to err, if any.
func Hint(err error) string {
	var h *HintError
	if errors.As(err, &h) {
		return h.Hint
	}
	return ""
}

// Report formats an error and its hint the way the CLI prints them.
func Report(err error) string {
	msg := fmt.Sprintf("Error: %v", err)
	if hint := Hint(err); hint != "" {
		msg += "\n" + hint
	}
	return msg
}
