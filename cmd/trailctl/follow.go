package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/twmb/franz-go/pkg/kgo"
	"gopkg.in/yaml.v3"

	audit "datatrail/pkg/platform/audit"
	"datatrail/pkg/platform/audit/consumer"
)

var errNoKafka = errors.New("no audit mirror configured (set KAFKA_BROKERS or kafka.brokers)")

func newFollowCmd() *cobra.Command {
	var (
		flags         filterFlags
		fromBeginning bool
	)

	cmd := &cobra.Command{
		Use:   "follow",
		Short: "Stream audit entries from the Kafka mirror as they are written",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.build(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Kafka.Enabled() {
				return errNoKafka
			}

			offset := kgo.NewOffset().AtEnd()
			if fromBeginning {
				offset = kgo.NewOffset().AtStart()
			}
			client, err := kgo.NewClient(
				kgo.SeedBrokers(cfg.Kafka.Brokers...),
				kgo.ConsumeTopics(cfg.Kafka.Topic),
				kgo.ConsumeResetOffset(offset),
			)
			if err != nil {
				return fmt.Errorf("create kafka consumer: %w", err)
			}
			defer client.Close()

			printEntry := entryPrinter(stdout, output)
			return consumer.New(client, cliLogger(cfg), consumer.WithFilter(filter)).
				Run(cmd.Context(), func(_ context.Context, e audit.Entry) error {
					return printEntry(e)
				})
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&flags.limit, "limit", "l", 0, "Stop after this many entries, 0 to follow until interrupted")
	cmd.Flags().BoolVar(&fromBeginning, "from-beginning", false, "Replay the topic from its oldest retained record")
	return cmd
}

// entryPrinter prints one entry at a time: a line for table, one JSON object
// per line for json, and one document per entry for yaml.
func entryPrinter(w io.Writer, format string) func(audit.Entry) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		return func(e audit.Entry) error { return enc.Encode(rowOf(e)) }
	case formatYAML:
		return func(e audit.Entry) error {
			if _, err := io.WriteString(w, "---\n"); err != nil {
				return err
			}
			return yaml.NewEncoder(w).Encode(rowOf(e))
		}
	default:
		return func(e audit.Entry) error {
			_, err := fmt.Fprintf(w, "%s  %-6s %s:%s  %s  %s -> %s  by %s\n",
				e.Timestamp.Format(time.RFC3339), e.Kind, e.TableName, orDash(e.RecordID),
				orDash(e.FieldName), orDash(e.OldValue), orDash(e.NewValue), e.ActorName,
			)
			return err
		}
	}
}
