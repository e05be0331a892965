package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oralvis/oralvis/internal/dashboard"
	"github.com/oralvis/oralvis/internal/domain/scans"
	"github.com/oralvis/oralvis/pkg/client"
)

// Client flag names double as ORALVIS_* environment variables.
const (
	flagServer   = "server"
	flagToken    = "token"
	flagAsUser   = "as-user"
	flagAsEmail  = "as-email"
	flagAsRoles  = "as-roles"
	clientPrefix = "ORALVIS"
)

func addClientFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String(flagServer, "http://localhost:8000", "OralVis server base URL")
	f.String(flagToken, "", "Bearer token")
	f.String(flagAsUser, "", "Development user id (development auth mode only)")
	f.String(flagAsEmail, "", "Development email (development auth mode only)")
	f.String(flagAsRoles, "", "Development roles, comma separated (development auth mode only)")
}

// clientFromFlags builds an API client from flags, falling back to
// ORALVIS_SERVER, ORALVIS_TOKEN and friends.
func clientFromFlags(cmd *cobra.Command) (*client.Client, error) {
	v := viper.New()
	v.SetEnvPrefix(clientPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	server := v.GetString(flagServer)
	if server == "" {
		return nil, fmt.Errorf("--%s is required", flagServer)
	}
	return client.New(server, client.Credentials{
		Token:     v.GetString(flagToken),
		DevUserID: v.GetString(flagAsUser),
		DevEmail:  v.GetString(flagAsEmail),
		DevRoles:  v.GetString(flagAsRoles),
	}), nil
}

// cliNotifier prints notifications to stderr through the console logger.
func cliNotifier(cmd *cobra.Command) dashboard.Notifier {
	return dashboard.LogNotifier{Logger: newLogger(cmd.ErrOrStderr(), "")}
}

func scansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scans",
		Short: "Upload, list and review scans",
	}
	addClientFlags(cmd)

	cmd.AddCommand(scansUploadCmd())
	cmd.AddCommand(scansListCmd())
	cmd.AddCommand(scansStatusCmd())
	cmd.AddCommand(scansViewCmd())
	return cmd
}

func scansUploadCmd() *cobra.Command {
	var patientName, patientID, scanType, notes, file string

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a scan (technician)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromFlags(cmd)
			if err != nil {
				return err
			}

			form := dashboard.NewUploadForm(c, cliNotifier(cmd))
			form.PatientName = patientName
			form.PatientID = patientID
			form.ScanType = scanType
			form.Notes = notes

			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("open scan file: %w", err)
				}
				defer f.Close()
				form.SetFile(filepath.Base(file), mime.TypeByExtension(filepath.Ext(file)), f)
			}

			s, err := form.Submit(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", s.ID, s.FilePath, s.Status)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&patientName, "patient-name", "", "Patient name (required)")
	f.StringVar(&patientID, "patient-id", "", "Patient identifier")
	f.StringVar(&scanType, "scan-type", "", "Scan type: "+strings.Join(scans.ScanTypes, ", ")+" (required)")
	f.StringVar(&notes, "notes", "", "Free-form notes")
	f.StringVar(&file, "file", "", "Image file to upload (required)")
	return cmd
}

func scansListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the scans visible to the caller",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromFlags(cmd)
			if err != nil {
				return err
			}
			me, err := c.Me(cmd.Context())
			if err != nil {
				return err
			}

			list := dashboard.NewScanList(c, cliNotifier(cmd), me.Identity)
			if err := list.Refresh(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", list.Heading(), list.CountLabel())
			cards := list.Cards()
			if len(cards) == 0 {
				fmt.Fprintln(out, list.EmptyMessage())
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPATIENT\tTYPE\tSTATUS\tSIZE\tUPLOADED")
			for _, card := range cards {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					card.ID, card.PatientName, card.ScanType, card.Status, card.Size, card.Uploaded)
			}
			return tw.Flush()
		},
	}
}

func scansStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <" + strings.Join(scans.Statuses, "|") + ">",
		Short: "Set a scan's review status (dentist)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid scan id %q", args[0])
			}
			c, err := clientFromFlags(cmd)
			if err != nil {
				return err
			}
			me, err := c.Me(cmd.Context())
			if err != nil {
				return err
			}
			list := dashboard.NewScanList(c, cliNotifier(cmd), me.Identity)
			return list.SetStatus(cmd.Context(), id, args[1])
		},
	}
}

func scansViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view <id>",
		Short: "Print a signed URL for a scan's image (valid for one hour)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid scan id %q", args[0])
			}
			c, err := clientFromFlags(cmd)
			if err != nil {
				return err
			}
			me, err := c.Me(cmd.Context())
			if err != nil {
				return err
			}
			list := dashboard.NewScanList(c, cliNotifier(cmd), me.Identity)
			u, err := list.ViewURL(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}
}
