package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRmCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <key>...",
		Short: "Remove keys from the cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := newStack(ctx, g.cfg)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			for _, key := range args {
				if err := s.cache.Delete(ctx, key); err != nil {
					return fmt.Errorf("%s: %w", key, err)
				}
				fmt.Println(key)
			}

			return nil
		},
	}
}
