package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/wI2L/jsondiff"
)

// opColors maps RFC 6902 operation types to terminal colors
var opColors = map[string]func(string, ...any) string{
	jsondiff.OperationAdd:     color.GreenString,
	jsondiff.OperationRemove:  color.RedString,
	jsondiff.OperationReplace: color.YellowString,
	jsondiff.OperationMove:    color.CyanString,
	jsondiff.OperationCopy:    color.CyanString,
}

// printDiff writes one line per operation, colored when colored is set
func printDiff(w io.Writer, patch jsondiff.Patch, colored bool) {
	for _, op := range patch {
		line := fmt.Sprintf("%-7s %s", op.Type, op.Path)
		if op.Type != jsondiff.OperationRemove {
			if v, err := json.Marshal(op.Value); err == nil {
				line += " " + string(v)
			}
		}
		if paint, ok := opColors[op.Type]; ok && colored {
			line = paint("%s", line)
		}
		fmt.Fprintln(w, line)
	}
}
