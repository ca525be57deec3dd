package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flanksource/animator/cache"
)

func newCacheCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the render cache",
	}

	var limit int
	history := &cobra.Command{
		Use:   "history",
		Short: "List recent renders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.openCache()
			if err != nil {
				return err
			}
			defer c.Close()
			entries, err := c.History(limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				a.console.Muted("No renders recorded in %s", c.Path())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), historyTable(entries))
			return nil
		},
	}
	history.Flags().IntVarP(&limit, "limit", "n", 20, "Number of renders to show (0 = all)")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Summarise renders per backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.openCache()
			if err != nil {
				return err
			}
			defer c.Close()
			s, err := c.Stats()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), statsTable(s))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cache entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.openCache()
			if err != nil {
				return err
			}
			defer c.Close()
			n, err := c.Clear()
			if err != nil {
				return err
			}
			a.console.Success("Removed %d entries from %s", n, c.Path())
			return nil
		},
	}

	cmd.AddCommand(history, stats, clearCmd)
	return cmd
}

func (a *app) openCache() (*cache.Cache, error) {
	return cache.New(cache.Config{DBPath: a.opts.CacheDB, NoCache: a.opts.NoCache})
}
