package main

import (
	"fmt"
	"strings"

	"github.com/akira02/tg.jpg/imagesearch"
	"github.com/akira02/tg.jpg/internal/configutil"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Print remote image URLs extracted for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			animated := configutil.FlagOrViperBool(cmd, "animated", "search.animated")

			client := imagesearch.NewClient()
			if endpoint := strings.TrimSpace(viper.GetString("search.endpoint")); endpoint != "" {
				client.Endpoint = endpoint
			}
			if locale := strings.TrimSpace(viper.GetString("search.locale")); locale != "" {
				client.Locale = locale
			}

			urls, err := client.Search(cmd.Context(), query, animated)
			if err != nil {
				return err
			}
			for _, u := range urls {
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
			return nil
		},
	}
	cmd.Flags().Bool("animated", false, "Search for animated images (gif) instead of still ones.")
	return cmd
}
