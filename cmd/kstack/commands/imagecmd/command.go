package imagecmd

import (
	"context"
	"fmt"
	"os"

	stackv1alpha1 "github.com/kform-dev/kstack/apis/stack/v1alpha1"
	"github.com/kform-dev/kstack/cmd/kstack/options"
	"github.com/kform-dev/kstack/pkg/buildspec"
	"github.com/pkg/errors"
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
		Use:   "image [flags]",
		Short: "print the container build descriptor of the application image",
		Args:  cobra.NoArgs,
		RunE:  r.runE,
	}

	r.Command = cmd
	r.Command.Flags().StringSliceVar(&r.Snapshots, "snapshot", nil, "image spec snapshots whose dependencies are reconciled with the stack file")
	return r
}

type Runner struct {
	Command   *cobra.Command
	Options   *options.Options
	Snapshots []string
}

func (r *Runner) runE(c *cobra.Command, args []string) error {
	ctx := c.Context()
	s, err := r.Options.LoadStack(ctx)
	if err != nil {
		return err
	}
	spec := s.Spec.Image

	if len(r.Snapshots) > 0 {
		snapshots := [][]stackv1alpha1.DependencySpec{spec.Dependencies}
		for _, path := range r.Snapshots {
			b, err := r.Options.ReadFile(path)
			if err != nil {
				return errors.Wrapf(err, "cannot read snapshot %s", path)
			}
			snapshot := stackv1alpha1.ImageSpec{}
			if err := yaml.Unmarshal(b, &snapshot); err != nil {
				return errors.Wrapf(err, "cannot parse snapshot %s", path)
			}
			snapshots = append(snapshots, snapshot.Dependencies)
		}
		deps, err := buildspec.Reconcile(ctx, snapshots...)
		if err != nil {
			return err
		}
		spec.Dependencies = deps
	}

	d, err := buildspec.New(ctx, spec, os.LookupEnv)
	if err != nil {
		return err
	}
	for _, warning := range d.Warnings {
		fmt.Fprintf(r.Options.IOStreams.ErrOut, "warning: %s\n", warning)
	}
	b, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	_, err = r.Options.IOStreams.Out.Write(b)
	return err
}
