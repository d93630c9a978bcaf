// rebuf - structured value conversion tool
//
// Usage:
//
//	rebuf [--from yaml|cbor] [--to yaml|cbor|text] [-o file] [file]
//
// Reads a document in one format, records it in a capture buffer, and
// replays it into another format. The buffer is the only artifact
// between the two, so any input format pairs with any output format.
//
// If no file is given, reads from stdin.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/Neumenon/rebuf/bridge"
	"github.com/Neumenon/rebuf/rebuf"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "rebuf: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		from   string
		to     string
		output string
	)
	flags := pflag.NewFlagSet("rebuf", pflag.ContinueOnError)
	flags.StringVar(&from, "from", "yaml", "input format: yaml or cbor")
	flags.StringVar(&to, "to", "text", "output format: yaml, cbor, or text")
	flags.StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	args := flags.Args()
	if len(args) > 1 {
		return fmt.Errorf("unexpected argument: %s", args[1])
	}

	input := io.Reader(os.Stdin)
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		input = f
	}
	data, err := io.ReadAll(input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	buf, err := capture(from, data)
	if err != nil {
		return err
	}
	out, err := render(to, buf)
	if err != nil {
		return err
	}

	if output == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	return os.WriteFile(output, out, 0o644)
}

func capture(format string, data []byte) (*rebuf.Buffer, error) {
	switch format {
	case "yaml":
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		return bridge.CaptureYAML(&node)
	case "cbor":
		return bridge.CaptureCBOR(data)
	default:
		return nil, fmt.Errorf("unknown input format %q (yaml, cbor)", format)
	}
}

func render(format string, buf *rebuf.Buffer) ([]byte, error) {
	switch format {
	case "text":
		p := bridge.NewPrinter()
		if err := buf.ReplayInto(p); err != nil {
			return nil, err
		}
		return append([]byte(p.String()), '\n'), nil
	case "yaml":
		sink := &bridge.YAMLSink{}
		if err := buf.ReplayInto(sink); err != nil {
			return nil, err
		}
		node, err := sink.Node()
		if err != nil {
			return nil, err
		}
		return yaml.Marshal(node)
	case "cbor":
		sink := &bridge.CBORSink{}
		if err := buf.ReplayInto(sink); err != nil {
			return nil, err
		}
		return sink.Marshal()
	default:
		return nil, fmt.Errorf("unknown output format %q (yaml, cbor, text)", format)
	}
}
