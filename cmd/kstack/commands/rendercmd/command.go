package rendercmd

import (
	"context"
	"path/filepath"

	"github.com/henderiw/logger/log"
	"github.com/kform-dev/kstack/cmd/kstack/options"
	"github.com/kform-dev/kstack/pkg/fsys"
	"github.com/kform-dev/kstack/pkg/inventory"
	"github.com/kform-dev/kstack/pkg/pkgio"
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
		Use:   "render [flags]",
		Short: "declare the stack and write the declarations in dependency order",
		Args:  cobra.NoArgs,
		RunE:  r.runE,
	}

	r.Command = cmd
	r.Command.Flags().StringVarP(&r.Output, "out", "o", "", "a file or directory where the result is stored, a filename creates a single yaml doc; a dir (trailing /) creates seperated yaml files")
	r.Command.Flags().StringVar(&r.RecordFile, "record", "", "a file the declared state record is stored in")
	r.Command.Flags().StringVar(&r.KubeRecord, "kube-record", "", "a config map (NAMESPACE/NAME) the declared state record is stored in")
	r.Command.Flags().StringVar(&r.RunID, "run-id", "", "id of this run in the record, generated when empty")
	return r
}

type Runner struct {
	Command    *cobra.Command
	Options    *options.Options
	Output     string
	RecordFile string
	KubeRecord string
	RunID      string
}

func (r *Runner) runE(c *cobra.Command, args []string) error {
	ctx := c.Context()
	log := log.FromContext(ctx)

	// resolve the storage first, a bad flag should not leave a half written output
	storage, err := r.Options.Storage(r.RecordFile, r.KubeRecord)
	if err != nil {
		return err
	}
	_, g, err := r.Options.Build(ctx)
	if err != nil {
		return err
	}
	// the stored record must be ours before anything is written
	if storage != nil {
		previous, err := storage.Load(ctx)
		if err != nil {
			return err
		}
		if previous != nil {
			log.Debug("previous record", "runID", previous.RunID)
		}
		if err := storage.Check(g.Name()); err != nil {
			return err
		}
	}

	w := &pkgio.GraphWriter{
		Type:   pkgio.OutputSinkFor(r.Output),
		Writer: r.Options.IOStreams.Out,
	}
	switch w.Type {
	case pkgio.OutputSink_File:
		fs, name, err := options.FileFS(r.Output)
		if err != nil {
			return err
		}
		w.Fsys, w.Path = fs, name
	case pkgio.OutputSink_Dir:
		if err := fsys.EnsureDir(ctx, r.Output); err != nil {
			return err
		}
		abs, err := filepath.Abs(r.Output)
		if err != nil {
			return err
		}
		w.Fsys, w.Path = fsys.NewDiskFS(abs), "."
	}
	if err := w.Write(ctx, g); err != nil {
		return err
	}

	if storage == nil {
		return nil
	}
	record, err := inventory.NewRecord(g, r.RunID)
	if err != nil {
		return err
	}
	if err := storage.Store(ctx, record); err != nil {
		return err
	}
	log.Info("record stored", "runID", record.RunID, "declarations", len(record.Declarations))
	return nil
}
