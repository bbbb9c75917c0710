package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/edusynth/internal/catalog"
	"github.com/okian/edusynth/internal/domain/schema"
)

func tasksCmd(_ Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List generation tasks and judge rubrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := catalog.Default()
			if err != nil {
				return err
			}
			reg, err := schema.New(cat)
			if err != nil {
				return err
			}
			return printTasks(cmd, reg)
		},
	}
}

func printTasks(cmd *cobra.Command, reg *schema.Registry) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tTARGET\tUNITS\tFIELDS")
	for _, code := range reg.Codes() {
		task, err := reg.Task(code)
		if err != nil {
			return err
		}
		units, err := reg.Units(code)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", task.Code, task.Name, task.Target, len(units), strings.Join(task.FieldNames(), ", "))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "RUBRIC\tMETRICS")
	for _, code := range reg.RubricCodes() {
		metrics, err := reg.Rubric(code)
		if err != nil {
			return err
		}
		names := make([]string, len(metrics))
		for i, m := range metrics {
			names[i] = m.Code
		}
		fmt.Fprintf(w, "%s\t%s\n", code, strings.Join(names, ", "))
	}
	return w.Flush()
}
