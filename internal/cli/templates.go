package cli

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/gamesmith/internal/generator"
	"github.com/mrz1836/gamesmith/internal/tui"
)

// AddTemplatesCommand adds the templates command to the root command.
func AddTemplatesCommand(root *cobra.Command, flags *GlobalFlags) {
	root.AddCommand(newTemplatesCmd(flags))
}

func newTemplatesCmd(flags *GlobalFlags) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List game templates",
		Long: `List the built-in game templates plus any loaded from the configured
templates directory.

Examples:
  gamesmith templates
  gamesmith templates --dir ./my-templates
  gamesmith templates --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTemplates(cmd.Context(), flags, dir, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "templates directory (overrides generator.templates_dir)")
	return cmd
}

func runTemplates(ctx context.Context, flags *GlobalFlags, dir string, w io.Writer) error {
	tui.CheckNoColor()
	out := tui.NewOutput(w, flags.Output)

	if dir == "" {
		cfg, err := loadConfig(ctx, flags)
		if err != nil {
			out.Error(err)
			return err
		}
		dir = cfg.Generator.TemplatesDir
	}

	reg, err := generator.NewDefaultRegistry(dir)
	if err != nil {
		out.Error(err)
		return err
	}

	manifests := reg.Manifests()
	if flags.Output == OutputJSON {
		return out.JSON(manifests)
	}

	rows := make([][]string, 0, len(manifests))
	for _, m := range manifests {
		rows = append(rows, []string{m.ID, m.Name, m.Version, m.EntryPoint, strings.Join(m.Tags, ",")})
	}
	out.Table([]string{"ID", "NAME", "VERSION", "ENTRY", "TAGS"}, rows)
	out.Info(strconv.Itoa(len(manifests)) + " templates")
	return nil
}
