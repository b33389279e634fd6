package main

import (
	"fmt"
	"io"
	"os"

	"github.com/adammck/rangecache/pkg/httprange"
	"github.com/spf13/cobra"
)

func newFetchCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <key> [range]",
		Short: "Load a range of an object through the cache, and write it to stdout",
		Long: "Load a range of an object through the cache, and write it to stdout.\n" +
			"The range is in HTTP form without the unit, like 0-99, 100- or -10.\n" +
			"The whole object is fetched if it's omitted.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			key := args[0]

			var req httprange.Request
			if len(args) == 2 {
				var err error
				req, err = httprange.ParseRange("bytes=" + args[1])
				if err != nil {
					return err
				}
			}

			s, err := newStack(ctx, g.cfg)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			if err := s.requireSource(); err != nil {
				return err
			}

			resp := httprange.Resolve(ctx, s.sizer, s.loader, key, req, false)
			switch resp := resp.(type) {
			case httprange.OK:
				defer resp.Body.Close()
				_, err := io.Copy(os.Stdout, resp.Body)
				return err

			case httprange.NotFound:
				return fmt.Errorf("not found: %s", key)

			case httprange.RangeNotSatisfiable:
				return fmt.Errorf("range not satisfiable for object of %d bytes", resp.Size)

			case httprange.InternalError:
				return resp.Err
			}

			return fmt.Errorf("unexpected response: %T", resp)
		},
	}
}
