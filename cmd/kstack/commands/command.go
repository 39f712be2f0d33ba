package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/kform-dev/kstack/cmd/kstack/commands/diffcmd"
	"github.com/kform-dev/kstack/cmd/kstack/commands/exportscmd"
	"github.com/kform-dev/kstack/cmd/kstack/commands/graphcmd"
	"github.com/kform-dev/kstack/cmd/kstack/commands/imagecmd"
	"github.com/kform-dev/kstack/cmd/kstack/commands/initcmd"
	"github.com/kform-dev/kstack/cmd/kstack/commands/kubeconfigcmd"
	"github.com/kform-dev/kstack/cmd/kstack/commands/rendercmd"
	"github.com/kform-dev/kstack/cmd/kstack/globals"
	"github.com/kform-dev/kstack/cmd/kstack/options"
	"github.com/spf13/cobra"
	"k8s.io/cli-runtime/pkg/genericclioptions"
)

var (
	debug bool
)

func GetMain(ctx context.Context) *cobra.Command {
	ioStreams := genericclioptions.IOStreams{
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
	return newMain(ctx, options.New(ioStreams))
}

func newMain(ctx context.Context, opts *options.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "kstack",
		Short:        "kstack declares an EKS application stack as a resource graph",
		Long:         "kstack declares the network, identities, cluster and workloads of an EKS application stack as a resource graph for a provisioning engine",
		SilenceUsage: true,
		// We handle all errors in main after return from cobra so we can
		// adjust the error message coming from libraries
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				globals.LogLevel.Set(slog.LevelDebug)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cmd.Flags().GetBool("help")
			if err != nil {
				return err
			}
			if h {
				return cmd.Help()
			}
			return cmd.Usage()
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&debug, "debug", "d", false, "debug")
	flags.StringVar(&opts.StackFile, "stack", options.DefaultStackFile, "the stack file")
	flags.StringVar(&opts.ValuesFile, "values", "", "a yaml file with configuration values, looked up before the environment")
	flags.StringVar(&opts.EnvPrefix, "env-prefix", opts.EnvPrefix, "prefix of the environment variables holding configuration values")
	flags.StringVar(&opts.OwnershipPolicy, "ownership-policy", opts.OwnershipPolicy, "MustMatch, AdoptIfNoInventory or AdoptAll; whether a config map record of another stack may be overwritten")
	// kubernetes flags, used by the config map record backend
	opts.ConfigFlags.AddFlags(flags)

	subCmds := map[string]*cobra.Command{
		"init":       initcmd.NewCommand(ctx, opts),
		"render":     rendercmd.NewCommand(ctx, opts),
		"graph":      graphcmd.NewCommand(ctx, opts),
		"diff":       diffcmd.NewCommand(ctx, opts),
		"exports":    exportscmd.NewCommand(ctx, opts),
		"kubeconfig": kubeconfigcmd.NewCommand(ctx, opts),
		"image":      imagecmd.NewCommand(ctx, opts),
		"version":    GetVersionCommand(ctx, opts),
	}
	for _, subCmd := range subCmds {
		cmd.AddCommand(subCmd)
	}
	return cmd
}
