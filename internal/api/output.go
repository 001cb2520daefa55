package api

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// OutputFormat selects how CLI commands render API responses.
type OutputFormat string

const (
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatJSON OutputFormat = "json"
)

// DefaultOutput is the format used when the --output flag carries an
// unrecognized value.
var DefaultOutput = OutputFormatYAML

// globalOutputFormat is set once by the root command's --output flag.
var globalOutputFormat = OutputFormatYAML

// encoders maps each format to a render function. Both formats indent
// by two spaces so pipeline records stay readable in a terminal.
var encoders = map[OutputFormat]func(io.Writer, any) error{
	OutputFormatJSON: func(w io.Writer, data any) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	},
	OutputFormatYAML: func(w io.Writer, data any) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	},
}

// SetOutputFormat sets the global output format from a flag value.
func SetOutputFormat(format string) {
	switch OutputFormat(format) {
	case OutputFormatJSON, OutputFormatYAML:
		globalOutputFormat = OutputFormat(format)
	default:
		globalOutputFormat = DefaultOutput
	}
}

// GetOutputFormat returns the current global output format.
func GetOutputFormat() OutputFormat {
	return globalOutputFormat
}

// Output writes data to stdout in the globally configured format.
func Output(data any) error {
	return OutputTo(os.Stdout, globalOutputFormat, data)
}

// OutputAs writes data to stdout in an explicit format, ignoring the
// global flag.
func OutputAs(format OutputFormat, data any) error {
	return OutputTo(os.Stdout, format, data)
}

// OutputTo renders data to w in the given format.
func OutputTo(w io.Writer, format OutputFormat, data any) error {
	encode, ok := encoders[format]
	if !ok {
		return fmt.Errorf("unknown output format: %s", format)
	}
	return encode(w, data)
}
