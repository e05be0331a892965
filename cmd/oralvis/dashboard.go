package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oralvis/oralvis/internal/dashboard"
)

func dashboardCmd() *cobra.Command {
	var tab string
	var width int

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Render the caller's dashboard in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromFlags(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			view, err := c.Dashboard(ctx)
			if err != nil {
				return err
			}
			if tab != "" && !view.HasTab(tab) {
				return fmt.Errorf("tab %q is not available for this account", tab)
			}
			active := tab
			if active == "" {
				active = view.DefaultTab
			}

			// The list is fetched only when its tab is shown.
			var list *dashboard.ScanList
			if active == dashboard.TabScans {
				me, err := c.Me(ctx)
				if err != nil {
					return err
				}
				list = dashboard.NewScanList(c, cliNotifier(cmd), me.Identity)
				if err := list.Refresh(ctx); err != nil {
					return err
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), dashboard.Render(*view, active, list, width))
			return nil
		},
	}
	addClientFlags(cmd)
	cmd.Flags().StringVar(&tab, "tab", "", "Tab to show ("+dashboard.TabUpload+" or "+dashboard.TabScans+"); defaults by role")
	cmd.Flags().IntVar(&width, "width", 80, "Render width in columns")
	return cmd
}
