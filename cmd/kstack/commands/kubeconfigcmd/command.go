package kubeconfigcmd

import (
	"bytes"
	"context"
	"fmt"

	"github.com/henderiw/logger/log"
	"github.com/kform-dev/kstack/cmd/kstack/options"
	"github.com/kform-dev/kstack/pkg/kubeconfig"
	"github.com/spf13/cobra"
	"k8s.io/client-go/tools/clientcmd"
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
		Use:   "kubeconfig --outputs FILE [flags]",
		Short: "write a kubeconfig for the declared cluster from the engine outputs",
		Args:  cobra.NoArgs,
		RunE:  r.runE,
	}

	r.Command = cmd
	r.Command.Flags().StringVar(&r.Outputs, "outputs", "", "a yaml file with the outputs resolved by the provisioning engine")
	r.Command.Flags().StringVarP(&r.Output, "out", "o", "", "the kubeconfig file, stdout when empty")
	r.Command.Flags().BoolVar(&r.Merge, "merge", false, "merge into the existing kubeconfig file instead of replacing it")
	r.Command.Flags().StringVar(&r.Format, "format", "yaml", "output format, yaml or json")
	_ = r.Command.MarkFlagRequired("outputs")
	return r
}

type Runner struct {
	Command *cobra.Command
	Options *options.Options
	Outputs string
	Output  string
	Merge   bool
	Format  string
}

func (r *Runner) runE(c *cobra.Command, args []string) error {
	ctx := c.Context()
	log := log.FromContext(ctx)
	if r.Format != "yaml" && r.Format != "json" {
		return fmt.Errorf("unsupported format %q", r.Format)
	}

	// secrets play no part in a kubeconfig
	s, g, err := r.Options.BuildStructure(ctx)
	if err != nil {
		return err
	}
	outputs, err := r.Options.ReadOutputs(r.Outputs)
	if err != nil {
		return err
	}
	in, err := kubeconfig.FromOutputs(g, outputs, s.Spec.Region)
	if err != nil {
		return err
	}
	cfg, err := kubeconfig.New(in)
	if err != nil {
		return err
	}
	if r.Output == "" {
		return kubeconfig.Print(r.Options.IOStreams.Out, cfg, r.Format)
	}

	fs, name, err := options.FileFS(r.Output)
	if err != nil {
		return err
	}
	if r.Merge && fs.Exists(name) {
		existing, err := clientcmd.LoadFromFile(r.Output)
		if err != nil {
			return err
		}
		if cfg, err = kubeconfig.Merge(existing, cfg); err != nil {
			return err
		}
	}
	buf := &bytes.Buffer{}
	if err := kubeconfig.Print(buf, cfg, r.Format); err != nil {
		return err
	}
	if err := fs.WriteFile(name, buf.Bytes(), 0600); err != nil {
		return err
	}
	log.Info("kubeconfig written", "path", r.Output, "context", cfg.CurrentContext)
	return nil
}
