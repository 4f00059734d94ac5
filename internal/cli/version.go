package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/mrz1836/gamesmith/internal/tui"
)

// versionInfo is the JSON shape of `gamesmith version --output json`.
type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
}

// AddVersionCommand adds the version command to the root command.
func AddVersionCommand(root *cobra.Command, flags *GlobalFlags, info BuildInfo) {
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.Output == OutputJSON {
				v := versionInfo{Version: info.Version, Commit: info.Commit, Date: info.Date, GoVersion: runtime.Version()}
				if v.Version == "" {
					v.Version = "dev"
				}
				return tui.NewJSONOutput(cmd.OutOrStdout()).JSON(v)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "gamesmith %s\n", formatVersion(info))
			return err
		},
	})
}
