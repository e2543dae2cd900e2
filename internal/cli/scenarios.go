package cli

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vk/tensorscope/internal/model"
	"github.com/vk/tensorscope/internal/ui"
)

func newScenariosCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List the scenarios offered by the backend",
		Args:  exactArgs(0, "no arguments"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := e.commandContext(cmd)
			list, err := e.app.Backend().ListScenarios(ctx)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				e.printf("%s no scenarios available\n", ui.WarnIcon())
				return nil
			}

			slices.SortFunc(list, func(a, b model.ScenarioInfo) int { return strings.Compare(a.ID, b.ID) })
			rows := make([][]string, 0, len(list))
			for _, s := range list {
				rows = append(rows, []string{s.ID, s.Name, s.Description})
			}
			ui.Table(e.out, []string{"ID", "NAME", "DESCRIPTION"}, rows)
			return nil
		},
	}
}
