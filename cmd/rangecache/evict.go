package main

import (
	"fmt"

	"github.com/adammck/rangecache/pkg/config"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newEvictCmd(g *globals) *cobra.Command {
	var maxSize string

	cmd := &cobra.Command{
		Use:   "evict",
		Short: "Evict least recently used keys until the cache is within its max size",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := *g.cfg

			if maxSize != "" {
				n, err := humanize.ParseBytes(maxSize)
				if err != nil {
					return fmt.Errorf("--max-size: %w", err)
				}
				cfg.MaxSize = config.ByteSize(n)
			}

			s, err := newStack(ctx, &cfg)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			before, n := s.cache.Size(), s.cache.Len()
			if err := s.cache.EnsureCleared(ctx); err != nil {
				return err
			}

			fmt.Printf("evicted %d keys (%s), %s left\n",
				n-s.cache.Len(),
				humanize.IBytes(before-s.cache.Size()),
				humanize.IBytes(s.cache.Size()))
			return nil
		},
	}

	cmd.Flags().StringVar(&maxSize, "max-size", "", "override the configured max size, e.g. 1GiB")
	return cmd
}
