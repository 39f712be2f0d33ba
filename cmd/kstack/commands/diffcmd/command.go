package diffcmd

import (
	"bytes"
	"context"
	"fmt"

	invv1alpha1 "github.com/kform-dev/kstack/apis/inv/v1alpha1"
	"github.com/kform-dev/kstack/cmd/kstack/options"
	"github.com/kform-dev/kstack/pkg/inventory"
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
		Use:   "diff [flags]",
		Short: "compare the declared stack with the stored record or a rendered stream, secret values are masked",
		Args:  cobra.NoArgs,
		RunE:  r.runE,
	}

	r.Command = cmd
	r.Command.Flags().StringVar(&r.RecordFile, "record", "", "a file holding the stored record")
	r.Command.Flags().StringVar(&r.KubeRecord, "kube-record", "", "a config map (NAMESPACE/NAME) holding the stored record")
	r.Command.Flags().StringVar(&r.Against, "against", "", "a declaration stream written by render to compare with, exports are not compared")
	r.Command.Flags().BoolVar(&r.ExitCode, "exit-code", false, "return an error when there are changes")
	return r
}

type Runner struct {
	Command    *cobra.Command
	Options    *options.Options
	RecordFile string
	KubeRecord string
	Against    string
	ExitCode   bool
}

func (r *Runner) runE(c *cobra.Command, args []string) error {
	ctx := c.Context()
	if r.Against != "" && (r.RecordFile != "" || r.KubeRecord != "") {
		return fmt.Errorf("--against and a record are mutually exclusive")
	}
	storage, err := r.Options.Storage(r.RecordFile, r.KubeRecord)
	if err != nil {
		return err
	}
	if storage == nil && r.Against == "" {
		return fmt.Errorf("one of --record, --kube-record or --against is required")
	}
	_, g, err := r.Options.Build(ctx)
	if err != nil {
		return err
	}
	record, err := inventory.NewRecord(g, "")
	if err != nil {
		return err
	}
	var stored *invv1alpha1.Record
	if storage != nil {
		stored, err = storage.Load(ctx)
		if err != nil {
			return err
		}
	} else {
		b, err := r.Options.ReadFile(r.Against)
		if err != nil {
			return err
		}
		stored, err = inventory.RecordFromStream(ctx, bytes.NewReader(b), r.Against)
		if err != nil {
			return err
		}
		record.Exports = map[string]string{}
	}
	plan, err := inventory.NewPlan(stored, record)
	if err != nil {
		return err
	}
	plan.Print(r.Options.IOStreams.Out)
	if r.ExitCode && plan.HasChanges() {
		return fmt.Errorf("stack %s has changes", g.Name())
	}
	return nil
}
