package initcmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/henderiw/logger/log"
	stackv1alpha1 "github.com/kform-dev/kstack/apis/stack/v1alpha1"
	"github.com/kform-dev/kstack/cmd/kstack/options"
	"github.com/kform-dev/kstack/pkg/fsys"
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
		Use:   "init [DIRECTORY] [flags]",
		Short: "write the default stack file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  r.runE,
	}

	r.Command = cmd
	r.Command.Flags().StringVar(&r.Name, "name", stackv1alpha1.DefaultStackName, "name of the stack")
	r.Command.Flags().BoolVar(&r.Bootstrap, "bootstrap", false, "add the bootstrap job")
	r.Command.Flags().BoolVar(&r.Force, "force", false, "overwrite an existing stack file")
	return r
}

type Runner struct {
	Command   *cobra.Command
	Options   *options.Options
	Name      string
	Bootstrap bool
	Force     bool
}

func (r *Runner) runE(c *cobra.Command, args []string) error {
	ctx := c.Context()
	log := log.FromContext(ctx)

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if err := fsys.EnsureDir(ctx, dir); err != nil {
		return err
	}
	path := filepath.Join(dir, filepath.Base(r.Options.StackFile))
	if fsys.FileExists(path) && !r.Force {
		return fmt.Errorf("stack file %s exists, use --force to overwrite", path)
	}

	s := stackv1alpha1.DefaultStack()
	s.SetName(r.Name)
	if r.Bootstrap {
		s.Spec.Bootstrap = stackv1alpha1.DefaultBootstrap()
	}
	b, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	fs, name, err := options.FileFS(path)
	if err != nil {
		return err
	}
	if err := fs.WriteFile(name, b, 0644); err != nil {
		return err
	}
	log.Info("stack file written", "path", path)
	fmt.Fprintf(r.Options.IOStreams.Out, "stack file %s written\n", path)
	return nil
}
