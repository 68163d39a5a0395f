package main

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"datatrail/internal/platform/config"
	audit "datatrail/pkg/platform/audit"
	auditpg "datatrail/pkg/platform/audit/store/postgres"
)

type filterFlags struct {
	actorID  int64
	table    string
	recordID int64
	kind     string
	from     string
	to       string
	limit    int
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.actorID, "actor", 0, "Only entries credited to this actor id")
	cmd.Flags().StringVarP(&f.table, "table", "t", "", "Only entries for this table, e.g. USUARIO")
	cmd.Flags().Int64VarP(&f.recordID, "record", "r", 0, "Only entries for this record id (requires --table)")
	cmd.Flags().StringVarP(&f.kind, "kind", "k", "", "Only entries of this kind: CREATE, UPDATE or DELETE")
	cmd.Flags().StringVar(&f.from, "from", "", "Earliest timestamp, RFC 3339 or YYYY-MM-DD")
	cmd.Flags().StringVar(&f.to, "to", "", "Latest timestamp, RFC 3339 or YYYY-MM-DD (whole day)")
}

// build converts the flags to a filter. Flags left at their zero value do not
// restrict.
func (f *filterFlags) build(cmd *cobra.Command) (audit.Filter, error) {
	var filter audit.Filter
	if cmd.Flags().Changed("actor") {
		filter.ActorID = &f.actorID
	}
	if cmd.Flags().Changed("record") {
		filter.RecordID = &f.recordID
	}
	filter.TableName = strings.ToUpper(strings.TrimSpace(f.table))
	if f.kind != "" {
		k, err := audit.ParseKind(f.kind)
		if err != nil {
			return filter, err
		}
		filter.Kind = k
	}
	var err error
	if filter.From, err = parseBound(f.from, false); err != nil {
		return filter, fmt.Errorf("--from: %w", err)
	}
	if filter.To, err = parseBound(f.to, true); err != nil {
		return filter, fmt.Errorf("--to: %w", err)
	}
	filter.Limit = f.limit
	return filter, filter.Validate()
}

func parseBound(v string, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	d, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, fmt.Errorf("%q is neither RFC 3339 nor YYYY-MM-DD", v)
	}
	if endOfDay {
		d = d.Add(24*time.Hour - time.Nanosecond)
	}
	return &d, nil
}

func newQueryCmd() *cobra.Command {
	var (
		flags  filterFlags
		recent bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "List audit entries, newest first",
		Long: "Lists audit entries matching every given filter, newest first.\n" +
			"With --recent the filters are ignored and the newest entries across all tables are shown.",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.build(cmd)
			if err != nil {
				return err
			}
			return withDB(cmd.Context(), func(cfg *config.Config, db *sql.DB) error {
				q := audit.NewQuery(auditpg.New(db),
					audit.WithQueryLogger(cliLogger(cfg)),
					audit.WithRecentLimit(cfg.Audit.RecentLimit),
				)
				if recent {
					seq, err := q.Recent(cmd.Context())
					if err != nil {
						return err
					}
					return render(stdout, output, seq)
				}
				seq, err := q.Entries(cmd.Context(), filter)
				if err != nil {
					return err
				}
				return render(stdout, output, seq)
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&flags.limit, "limit", "l", 100, "Maximum number of entries, 0 for all")
	cmd.Flags().BoolVar(&recent, "recent", false, "Show the newest entries across all tables")
	return cmd
}

func newCountCmd() *cobra.Command {
	var flags filterFlags

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count audit entries matching the filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.build(cmd)
			if err != nil {
				return err
			}
			return withDB(cmd.Context(), func(cfg *config.Config, db *sql.DB) error {
				n, err := audit.NewQuery(auditpg.New(db), audit.WithQueryLogger(cliLogger(cfg))).Count(cmd.Context(), filter)
				if err != nil {
					return err
				}
				return renderValue(stdout, output, map[string]int{"count": n}, fmt.Sprintf("%d\n", n))
			})
		},
	}

	flags.register(cmd)
	return cmd
}
