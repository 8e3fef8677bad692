// Package configutil resolves effective settings from flags and viper,
// with explicitly set flags winning over config file and environment.
package configutil

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func FlagOrViperString(cmd *cobra.Command, flagName, viperKey string) string {
	if cmd.Flags().Changed(flagName) {
		v, _ := cmd.Flags().GetString(flagName)
		return v
	}
	if viper.IsSet(viperKey) {
		return viper.GetString(viperKey)
	}
	v, _ := cmd.Flags().GetString(flagName)
	return v
}

func FlagOrViperBool(cmd *cobra.Command, flagName, viperKey string) bool {
	if cmd.Flags().Changed(flagName) {
		v, _ := cmd.Flags().GetBool(flagName)
		return v
	}
	if viper.IsSet(viperKey) {
		return viper.GetBool(viperKey)
	}
	v, _ := cmd.Flags().GetBool(flagName)
	return v
}

func FlagOrViperInt(cmd *cobra.Command, flagName, viperKey string) int {
	if cmd.Flags().Changed(flagName) {
		v, _ := cmd.Flags().GetInt(flagName)
		return v
	}
	if viper.IsSet(viperKey) {
		return viper.GetInt(viperKey)
	}
	v, _ := cmd.Flags().GetInt(flagName)
	return v
}

func FlagOrViperDuration(cmd *cobra.Command, flagName, viperKey string) time.Duration {
	if cmd.Flags().Changed(flagName) {
		v, _ := cmd.Flags().GetDuration(flagName)
		return v
	}
	if viper.IsSet(viperKey) {
		return viper.GetDuration(viperKey)
	}
	v, _ := cmd.Flags().GetDuration(flagName)
	return v
}
