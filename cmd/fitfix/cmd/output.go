/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type outputMode int

const (
	outputHex outputMode = iota
	outputRaw
	outputFile
	outputDiscard
)

// output decides where repaired bytes go
type output struct {
	mode outputMode
	dest string // file, or directory when there are several inputs
	many bool
}

// newOutput validates the output flags for n inputs
func newOutput(dest string, raw, discard bool, n int) (output, error) {
	set := 0
	for _, b := range []bool{dest != "", raw, discard} {
		if b {
			set++
		}
	}
	if set > 1 {
		return output{}, errors.New("--output, --raw and --discard are mutually exclusive")
	}

	o := output{dest: dest, many: n > 1}
	switch {
	case discard:
		o.mode = outputDiscard
	case raw:
		if o.many {
			return output{}, errors.New("--raw takes a single input")
		}
		o.mode = outputRaw
	case dest != "":
		o.mode = outputFile
		if o.many {
			if info, err := os.Stat(dest); err != nil || !info.IsDir() {
				return output{}, fmt.Errorf("--output must be an existing directory for several inputs: %s", dest)
			}
		}
	default:
		o.mode = outputHex
	}
	return o, nil
}

// write emits data for the input at path
func (o output) write(w io.Writer, path string, data []byte) error {
	switch o.mode {
	case outputDiscard:
		return nil
	case outputRaw:
		_, err := w.Write(data)
		return err
	case outputFile:
		target := o.dest
		if o.many {
			target = filepath.Join(o.dest, filepath.Base(path))
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
		return nil
	default:
		if o.many {
			_, err := fmt.Fprintf(w, "%s\t%s\n", path, hex.EncodeToString(data))
			return err
		}
		_, err := fmt.Fprintln(w, hex.EncodeToString(data))
		return err
	}
}
