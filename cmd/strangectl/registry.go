package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/go-strange/strange/internal/plugin"
	"github.com/spf13/cobra"
)

type registryOptions struct {
	source     string
	pluginsDir string
}

func newRegistryCmd() *cobra.Command {
	opts := &registryOptions{}
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Read the plugin registry",
	}
	cmd.PersistentFlags().StringVar(&opts.source, "registry", "plugins.json", "registry file or URL")
	cmd.PersistentFlags().StringVar(&opts.pluginsDir, "plugins-dir", "", "plugins directory, shows install state when set")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registry entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.list(cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "resolve",
		Short: "Print the enable order of the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	})
	return cmd
}

func (o *registryOptions) fetch(ctx context.Context) ([]plugin.Descriptor, error) {
	return plugin.NewRegistryClient(o.source, plugin.WithFetchAttempts(1)).Fetch(ctx)
}

func (o *registryOptions) list(cmd *cobra.Command) error {
	descs, err := o.fetch(cmd.Context())
	if err != nil {
		return err
	}
	var installer *plugin.Installer
	if o.pluginsDir != "" {
		installer = plugin.NewInstaller(o.pluginsDir, nil, nil)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tDEPENDENCIES\tINSTALLED\tUPDATE")
	for _, d := range descs {
		installed, update := "-", "-"
		if installer != nil {
			st := installer.State(d.Name, d.Version)
			installed = st.CurrentVersion
			if !st.Installed {
				installed = "no"
			}
			update = fmt.Sprint(st.HasUpdate)
		}
		deps := strings.Join(d.Dependencies, ",")
		if deps == "" {
			deps = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.Name, d.Version, deps, installed, update)
	}
	return w.Flush()
}

func (o *registryOptions) resolve(cmd *cobra.Command) error {
	descs, err := o.fetch(cmd.Context())
	if err != nil {
		return err
	}
	order, err := plugin.Resolve(descs)
	if err != nil {
		return err
	}
	for i, name := range order {
		fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, name)
	}
	return nil
}
