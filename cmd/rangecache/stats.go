package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newStatsCmd(g *globals) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show what's in the cache dir, without changing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := inspectStack(ctx, g.cfg)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			c := s.cache
			fmt.Printf("keys:     %d\n", c.Len())
			fmt.Printf("size:     %s\n", humanize.IBytes(c.Size()))
			fmt.Printf("max size: %s\n", humanize.IBytes(c.MaxSize()))

			if !verbose {
				return nil
			}

			// everything has the same access time after a restart, so this
			// is in eviction order but not very interesting.
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "\nKEY\tSIZE\tRANGES")
			for _, e := range c.Entries() {
				rs, err := c.Ranges(ctx, e.Key)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\n", e.Key, humanize.IBytes(e.Size), len(rs.Ranges))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list every key")
	return cmd
}
