package exportscmd

import (
	"context"

	"github.com/kform-dev/kstack/cmd/kstack/options"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
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
		Use:   "exports [flags]",
		Short: "print the export templates, or their values resolved from the engine outputs",
		Args:  cobra.NoArgs,
		RunE:  r.runE,
	}

	r.Command = cmd
	r.Command.Flags().StringVar(&r.Outputs, "outputs", "", "a yaml file with the outputs resolved by the provisioning engine")
	return r
}

type Runner struct {
	Command *cobra.Command
	Options *options.Options
	Outputs string
}

func (r *Runner) runE(c *cobra.Command, args []string) error {
	ctx := c.Context()
	_, g, err := r.Options.Build(ctx)
	if err != nil {
		return err
	}
	exports := map[string]string{}
	if r.Outputs == "" {
		for _, export := range g.Exports() {
			exports[export.Name] = export.Template
		}
	} else {
		outputs, err := r.Options.ReadOutputs(r.Outputs)
		if err != nil {
			return err
		}
		exports, err = g.Resolve(outputs)
		if err != nil {
			return err
		}
	}
	b, err := yaml.Marshal(exports)
	if err != nil {
		return err
	}
	_, err = r.Options.IOStreams.Out.Write(b)
	return err
}
