/*
Copyright 2024 Nokia.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package commands

import (
	"context"
	"fmt"

	"github.com/kform-dev/kstack/cmd/kstack/options"
	"github.com/spf13/cobra"
)

var (
	version = "0.0.0"
	commit  = "none"
	date    = "unknown"
)

const (
	repoUrl = "https://github.com/kform-dev/kstack"
)

func GetVersionCommand(ctx context.Context, opts *options.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "show kstack version",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := opts.IOStreams.Out
			fmt.Fprintf(w, "    version: %s\n", version)
			fmt.Fprintf(w, "     commit: %s\n", commit)
			fmt.Fprintf(w, "       date: %s\n", date)
			fmt.Fprintf(w, "     source: %s\n", repoUrl)
			return nil
		},
	}
	return cmd
}
