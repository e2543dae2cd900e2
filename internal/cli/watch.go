package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vk/tensorscope/internal/model"
	"github.com/vk/tensorscope/internal/session"
	"github.com/vk/tensorscope/internal/store"
	"github.com/vk/tensorscope/internal/ui"
)

type paramEdit struct {
	name, raw string
}

func newWatchCommand(e *env) *cobra.Command {
	var (
		sets      []string
		subscribe []string
		selectID  string
		duration  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <scenario>",
		Short: "Run a scenario and stream tensor updates until interrupted",
		Long: "watch selects a scenario, runs it, subscribes to its probes and prints every\n" +
			"tensor update pushed by the backend. Parameter edits given with --set go\n" +
			"through the debounced update pipeline.",
		Args: exactArgs(1, "a scenario id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			edits, err := parseEdits(sets)
			if err != nil {
				return err
			}
			ctx := e.commandContext(cmd)
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			unsubscribe := e.app.Session().Store().Subscribe(func(st store.State, a store.Action) {
				renderAction(e, st, a)
			})
			defer unsubscribe()

			return e.app.Run(ctx, func(ctx context.Context, s *session.Session) error {
				if err := s.SelectScenario(ctx, args[0]); err != nil {
					return err
				}
				printScenario(e, s.Snapshot())

				for _, edit := range edits {
					if err := applyEdit(ctx, s, edit); err != nil {
						return err
					}
				}
				if err := s.Watch(ctx, subscribe...); err != nil {
					return err
				}
				if selectID != "" {
					return s.SelectTensor(ctx, selectID)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Parameter edit name=value; may be repeated.")
	cmd.Flags().StringSliceVar(&subscribe, "subscribe", nil, "Extra tensor keys to subscribe to.")
	cmd.Flags().StringVar(&selectID, "select", "", "Tensor to select and inspect.")
	cmd.Flags().DurationVar(&duration, "for", 0, "Stop after this long. 0 runs until interrupted.")
	return cmd
}

func parseEdits(sets []string) ([]paramEdit, error) {
	edits := make([]paramEdit, 0, len(sets))
	for _, s := range sets {
		name, raw, ok := strings.Cut(s, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, usageError("--set expects name=value, got %q", s)
		}
		edits = append(edits, paramEdit{name: name, raw: strings.TrimSpace(raw)})
	}
	return edits, nil
}

func applyEdit(ctx context.Context, s *session.Session, edit paramEdit) error {
	p, ok := s.Snapshot().Scenario.Parameter(edit.name)
	if !ok {
		return usageError("scenario has no parameter %q", edit.name)
	}
	v, err := p.Coerce(edit.raw)
	if err != nil {
		return usageError("%v", err)
	}
	if err := s.SetParameter(ctx, edit.name, v); err != nil {
		return usageError("%v", err)
	}
	return nil
}

func printScenario(e *env, st store.State) {
	d := st.Scenario
	if d == nil {
		return
	}
	e.printf("%s %s\n", ui.Brand.Sprint(d.Name), ui.Subtle.Sprint(d.Description))
	rows := make([][]string, 0, len(d.Parameters))
	for _, p := range d.Parameters {
		rows = append(rows, []string{p.Name, p.DisplayLabel(), fmt.Sprint(st.Parameters[p.Name])})
	}
	ui.Table(e.out, []string{"PARAM", "LABEL", "VALUE"}, rows)
	if res := st.Layout; res != nil {
		for _, w := range res.Warnings {
			e.printf("%s %s\n", ui.WarnIcon(), w.Error())
		}
	}
}

// renderAction runs on the session loop for every dispatched action.
func renderAction(e *env, st store.State, a store.Action) {
	switch a := a.(type) {
	case store.ConnectionChanged:
		e.printf("%s %s\n", ui.Subtle.Sprint("connection:"), ui.ConnectionState(a.State))
	case store.RunSucceeded:
		if st.RunSeq == a.Seq && st.CurrentScenarioID == a.ScenarioID {
			e.printf("%s run finished with %d tensor(s)\n", ui.StatusIcon(true), len(st.Tensors))
			for _, id := range sortedKeys(st.Tensors) {
				printTensor(e, st.Tensors[id])
			}
		}
	case store.RunFailed:
		if st.RunSeq == a.Seq {
			e.printf("%s run failed: %s\n", ui.StatusIcon(false), a.Err)
		}
	case store.ParameterUpdated:
		e.printf("%s %s = %v\n", ui.Subtle.Sprint("param"), a.Name, a.Value)
	case store.TensorUpdated:
		printTensor(e, a.Summary)
	case store.TensorsReplaced:
		for _, id := range sortedKeys(a.Tensors) {
			printTensor(e, a.Tensors[id])
		}
	case store.GraphUpdated:
		e.printf("%s graph updated: %d node(s)\n", ui.Info.Sprint("↻"), len(a.Graph.Nodes))
	case store.ServerError:
		e.printf("%s server: %s\n", ui.WarnIcon(), a.Message)
	}
}

func printTensor(e *env, s model.TensorSummary) {
	stats := make([]string, 0, len(s.Stats))
	for _, k := range sortedKeys(s.Stats) {
		stats = append(stats, fmt.Sprintf("%s=%v", k, s.Stats[k]))
	}
	e.printf("  %s %s %s %s\n", ui.Info.Sprint(s.ID), s.Kind, shapeString(s.Shape), strings.Join(stats, " "))
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
