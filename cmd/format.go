package cmd

import (
	"strings"

	"github.com/spf13/pflag"

	"github.com/arin/sapphire/internal/notes"
)

// formatValue is a --format flag restricted to the export formats.
type formatValue notes.Format

var _ pflag.Value = (*formatValue)(nil)

func (f *formatValue) Set(s string) error {
	v, err := notes.ParseFormat(s)
	if err != nil {
		return err
	}
	*f = formatValue(v)
	return nil
}

func (f *formatValue) String() string { return string(*f) }

func (f *formatValue) Type() string {
	names := make([]string, len(notes.Formats))
	for i, n := range notes.Formats {
		names[i] = string(n)
	}
	return strings.Join(names, "|")
}
