package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hed1ad/gochangepoint/pkg/cost"
	"github.com/hed1ad/gochangepoint/pkg/detect"
	cpio "github.com/hed1ad/gochangepoint/pkg/io"
	"github.com/hed1ad/gochangepoint/pkg/io/csv"
)

func newSuggestCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest FILE",
		Short: "Suggest a window width for a series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := csv.NewReader(args[0])
			if err != nil {
				return err
			}
			defer reader.Close()

			s, err := cpio.ReadSeries(reader)
			if err != nil {
				return err
			}

			root.logger.Debugw("Suggesting window width", "file", args[0], "samples", s.Len())
			fmt.Fprintf(cmd.OutOrStdout(), "samples: %d\nsuggested window width: ~%d\n",
				s.Len(), detect.SuggestWindowWidth(s.Len()))
			return nil
		},
	}
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List search methods and cost models",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			methods := make([]string, 0, len(detect.Methods()))
			for _, m := range detect.Methods() {
				methods = append(methods, string(m))
			}
			models := make([]string, 0, len(cost.Kinds()))
			for _, k := range cost.Kinds() {
				models = append(models, string(k))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "methods: %s\n", strings.Join(methods, ", "))
			fmt.Fprintf(out, "models:  %s\n", strings.Join(models, ", "))
		},
	}
}
