package main

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	audit "datatrail/pkg/platform/audit"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// row is the printable form of an entry.
type row struct {
	ID          int64     `json:"id"          yaml:"id"`
	Timestamp   time.Time `json:"timestamp"   yaml:"timestamp"`
	Kind        string    `json:"kind"        yaml:"kind"`
	Table       string    `json:"table"       yaml:"table"`
	RecordID    *int64    `json:"record_id"   yaml:"record_id"`
	Field       *string   `json:"field"       yaml:"field"`
	OldValue    *string   `json:"old_value"   yaml:"old_value"`
	NewValue    *string   `json:"new_value"   yaml:"new_value"`
	Actor       string    `json:"actor"       yaml:"actor"`
	ActorID     *int64    `json:"actor_id"    yaml:"actor_id"`
	IPAddress   *string   `json:"ip_address"  yaml:"ip_address"`
	Description string    `json:"description" yaml:"description"`
}

func rowOf(e audit.Entry) row {
	return row{
		ID:          e.ID,
		Timestamp:   e.Timestamp,
		Kind:        string(e.Kind),
		Table:       e.TableName,
		RecordID:    e.RecordID,
		Field:       e.FieldName,
		OldValue:    e.OldValue,
		NewValue:    e.NewValue,
		Actor:       e.ActorName,
		ActorID:     e.ActorID,
		IPAddress:   e.IPAddress,
		Description: e.Description,
	}
}

// render drains seq and prints it in format. The table format streams; json
// and yaml collect first.
func render(w io.Writer, format string, seq iter.Seq2[audit.Entry, error]) error {
	switch format {
	case formatTable:
		return renderTable(w, seq)
	case formatJSON, formatYAML:
		rows := []row{}
		for e, err := range seq {
			if err != nil {
				return err
			}
			rows = append(rows, rowOf(e))
		}
		return renderValue(w, format, rows, "")
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func renderTable(w io.Writer, seq iter.Seq2[audit.Entry, error]) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIMESTAMP\tKIND\tTABLE\tRECORD\tFIELD\tOLD\tNEW\tACTOR")
	n := 0
	for e, err := range seq {
		if err != nil {
			_ = tw.Flush()
			return err
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Timestamp.Format(time.RFC3339), e.Kind, e.TableName,
			orDash(e.RecordID), orDash(e.FieldName), orDash(e.OldValue), orDash(e.NewValue),
			e.ActorName,
		)
		n++
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if n == 0 {
		fmt.Fprintln(w, "No audit entries found.")
	}
	return nil
}

// renderValue prints v as json or yaml, or text for the table format.
func renderValue(w io.Writer, format string, v any, text string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case formatTable:
		_, err := io.WriteString(w, text)
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func orDash[T any](p *T) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprint(*p)
}
