package cli

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/vk/tensorscope/internal/layout"
	"github.com/vk/tensorscope/internal/model"
	"github.com/vk/tensorscope/internal/ui"
)

type layoutNode struct {
	ID    string  `json:"id"`
	Layer int     `json:"layer"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type layoutReport struct {
	Scenario   string         `json:"scenario"`
	Layers     [][]layoutNode `json:"layers"`
	Unresolved []string       `json:"unresolved"`
	Warnings   []string       `json:"warnings"`
	Crossings  int            `json:"crossings"`
	Width      float64        `json:"width"`
	Height     float64        `json:"height"`
	Highlight  *highlight     `json:"highlight,omitempty"`
}

type highlight struct {
	Tensor string   `json:"tensor"`
	Nodes  []string `json:"nodes"`
	Edges  []int    `json:"edges"`
}

func newLayoutCommand(e *env) *cobra.Command {
	var (
		asJSON       bool
		refine       bool
		highlightKey string
	)
	cmd := &cobra.Command{
		Use:   "layout <scenario>",
		Short: "Print the layered layout of a scenario's operator graph",
		Args:  exactArgs(1, "a scenario id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := e.commandContext(cmd)
			detail, err := e.app.Backend().GetScenario(ctx, args[0])
			if err != nil {
				return err
			}
			g := detail.GraphOrEmpty()
			res := layout.Compute(g, e.app.LayoutOptions()...)
			if refine {
				res = layout.Refine(g, res)
			}

			report := buildLayoutReport(args[0], g, res)
			if highlightKey != "" {
				if _, _, ok := model.SplitTensorKey(highlightKey); !ok {
					return usageError("--highlight expects a tensor key like node.output, got %q", highlightKey)
				}
				nodes, edges := layout.Highlight(g, highlightKey)
				report.Highlight = &highlight{Tensor: highlightKey, Nodes: nodes, Edges: edges}
			}

			if asJSON {
				data, err := sonic.ConfigStd.MarshalIndent(report, "", "  ")
				if err != nil {
					return err
				}
				e.printf("%s\n", data)
				return nil
			}
			printLayout(e, report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the layout as JSON.")
	cmd.Flags().BoolVar(&refine, "refine", false, "Run extra crossing-reduction sweeps.")
	cmd.Flags().StringVar(&highlightKey, "highlight", "", "Tensor key (node.output) whose producer and consumers are marked.")
	return cmd
}

func buildLayoutReport(scenario string, g model.Graph, res *layout.Result) layoutReport {
	report := layoutReport{
		Scenario:   scenario,
		Layers:     make([][]layoutNode, len(res.Order)),
		Unresolved: res.Unresolved,
		Warnings:   make([]string, 0, len(res.Warnings)),
		Crossings:  layout.CountCrossings(g, res),
	}
	for l, ids := range res.Order {
		report.Layers[l] = make([]layoutNode, 0, len(ids))
		for _, id := range ids {
			p := res.Positions[id]
			report.Layers[l] = append(report.Layers[l], layoutNode{ID: id, Layer: l, X: p.X, Y: p.Y})
		}
	}
	for _, w := range res.Warnings {
		report.Warnings = append(report.Warnings, w.Error())
	}
	if report.Unresolved == nil {
		report.Unresolved = []string{}
	}
	report.Width, report.Height = res.Bounds()
	return report
}

func printLayout(e *env, r layoutReport) {
	e.printf("%s %s\n", ui.Brand.Sprint("Scenario"), r.Scenario)
	if len(r.Layers) == 0 {
		e.printf("  %s\n", ui.Subtle.Sprint("(empty graph)"))
	}
	marked := map[string]bool{}
	if r.Highlight != nil {
		for _, id := range r.Highlight.Nodes {
			marked[id] = true
		}
	}
	for l, nodes := range r.Layers {
		cells := make([]string, 0, len(nodes))
		for _, n := range nodes {
			cell := fmt.Sprintf("%s (%g, %g)", n.ID, n.X, n.Y)
			if marked[n.ID] {
				cell = ui.Info.Sprint("*" + cell)
			}
			cells = append(cells, cell)
		}
		e.printf("  %s %s\n", ui.Subtle.Sprintf("layer %d:", l), strings.Join(cells, "  "))
	}
	if len(r.Unresolved) > 0 {
		e.printf("%s cycle fallback layer: %s\n", ui.WarnIcon(), strings.Join(r.Unresolved, ", "))
	}
	for _, w := range r.Warnings {
		e.printf("%s %s\n", ui.WarnIcon(), w)
	}
	e.printf("%s\n", ui.Subtle.Sprintf("crossings: %d  size: %gx%g", r.Crossings, r.Width, r.Height))
}
