package graphcmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/kform-dev/kstack/cmd/kstack/options"
	"github.com/spf13/cobra"
)

func NewCommand(ctx context.Context, opts *options.Options) *cobra.Command {
	return NewRunner(ctx, opts).Command
}

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, opts *options.Options) *Runner {
	r := &Runner{
		Options: opts,
	}
	cmd := &cobra.Command{
		Use:   "graph [flags]",
		Short: "print the declarations in dependency order",
		Args:  cobra.NoArgs,
		RunE:  r.runE,
	}

	r.Command = cmd
	r.Command.Flags().BoolVar(&r.DAG, "dag", false, "print the transitively reduced dependency graph")
	return r
}

type Runner struct {
	Command *cobra.Command
	Options *options.Options
	DAG     bool
}

func (r *Runner) runE(c *cobra.Command, args []string) error {
	ctx := c.Context()
	_, g, err := r.Options.Build(ctx)
	if err != nil {
		return err
	}
	w := r.Options.IOStreams.Out
	if r.DAG {
		return g.Print(ctx, w)
	}
	for i, level := range g.Levels() {
		fmt.Fprintf(w, "level %d:\n", i)
		for _, address := range level {
			d, _ := g.Get(address)
			flags := []string{}
			if d.Sensitive {
				flags = append(flags, "sensitive")
			}
			if d.HighPrivilege {
				flags = append(flags, "high-privilege")
			}
			fmt.Fprintf(w, "  %s", address)
			if len(flags) > 0 {
				fmt.Fprintf(w, " [%s]", strings.Join(flags, ","))
			}
			fmt.Fprintln(w)
			for _, dep := range g.Dependencies(address) {
				fmt.Fprintf(w, "    <- %s\n", dep)
			}
		}
	}
	for _, warning := range g.Warnings() {
		fmt.Fprintf(r.Options.IOStreams.ErrOut, "warning: %s\n", warning)
	}
	return nil
}
