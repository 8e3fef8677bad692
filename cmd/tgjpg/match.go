package main

import (
	"fmt"
	"strings"

	"github.com/akira02/tg.jpg/corpus"
	"github.com/akira02/tg.jpg/internal/configutil"
	"github.com/akira02/tg.jpg/internal/pathutil"
	"github.com/spf13/cobra"
)

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <query>",
		Short: "Print ranked local corpus matches for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			assetsDir := pathutil.ExpandHomePath(configutil.FlagOrViperString(cmd, "assets-dir", "assets.dir"))

			matcher := corpus.NewMatcher(assetsDir)
			matches, err := matcher.FindMatches(query)
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no matches")
				return nil
			}
			for i, m := range matches {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. %5d  %s  (%s)\n", i+1, m.Score, m.Asset.Rel, m.Asset.Format)
			}
			return nil
		},
	}
	cmd.Flags().String("assets-dir", "", "Local image corpus directory.")
	return cmd
}
