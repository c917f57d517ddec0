package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newPlayerCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "player ID",
		Short: "Print one player's ledger entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			d, err := openDeps(cmd.Context(), cfg, 1)
			if err != nil {
				return err
			}
			defer d.Close()

			l, err := d.ledger.Load(cmd.Context())
			if err != nil {
				return err
			}
			e, ok := l.Get(args[0])
			if !ok {
				return fmt.Errorf("player %s not found in ledger", args[0])
			}

			out := map[string]interface{}{
				"player_id":     args[0],
				"name":          e.Name,
				"team":          e.Team,
				"games":         e.Games,
				"starts":        e.Starts,
				"total_min":     e.TotalMinutes,
				"avg_minutes":   e.AvgMinutes(),
				"dates_started": e.DatesStarted,
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
