package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/arloliu/pulse/notify"
)

func alertsCmd() *cobra.Command {
	var (
		dir   string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List recent alerts from the journal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				return errors.New("--dir is required")
			}

			journal, err := notify.OpenJournal(dir)
			if err != nil {
				return err
			}
			defer journal.Close()

			alerts, err := journal.Recent(limit)
			if err != nil {
				return err
			}

			return printAlerts(cmd, alerts)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Journal directory (sinks.journal.dir)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of alerts to show")

	return cmd
}

func printAlerts(cmd *cobra.Command, alerts []notify.Alert) error {
	if len(alerts) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "no alerts recorded")
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tNODE\tRETRIES\tLAST HEARTBEAT\tID")
	for _, a := range alerts {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			a.Timestamp.Format(time.RFC3339),
			a.Node,
			a.Retries,
			a.LastHeartbeat.Format(time.RFC3339),
			a.ID,
		)
	}

	return w.Flush()
}
