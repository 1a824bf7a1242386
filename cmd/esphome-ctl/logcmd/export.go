package logcmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/esphome-native/esphome-go/pkg/log"
)

// RunExport writes the matching events of the file at path to w as JSON
// lines or CSV.
func RunExport(path, format string, filter log.Filter, w io.Writer) error {
	switch format {
	case "jsonl":
		encoder := json.NewEncoder(w)
		return forEach(path, filter, func(event log.Event) error {
			if err := encoder.Encode(event); err != nil {
				return fmt.Errorf("failed to encode event: %w", err)
			}
			return nil
		})
	case "csv":
		return exportCSV(path, filter, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportCSV(path string, filter log.Filter, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "connection_id", "device", "direction", "layer", "category", "type", "type_code", "size"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	return forEach(path, filter, func(event log.Event) error {
		code, size := "", ""
		switch {
		case event.Message != nil:
			code = strconv.FormatUint(uint64(event.Message.Type), 10)
			size = strconv.Itoa(event.Message.Size)
		case event.Frame != nil:
			size = strconv.Itoa(event.Frame.Size)
		}
		row := []string{
			event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
			event.ConnectionID,
			event.Device,
			event.Direction.String(),
			event.Layer.String(),
			event.Category.String(),
			eventLabel(event),
			code,
			size,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		return nil
	})
}
