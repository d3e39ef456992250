package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var Version = "dev"

type rootOptions struct {
	server  string
	secret  string
	output  string
	timeout time.Duration
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "waitlistctl",
		Short:         "waitlistctl - admin client for the waitlist service",
		Long:          "Join, inspect and manage waitlist entries through the waitlist HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case "table", "json", "yaml":
				return nil
			}
			return fmt.Errorf("unknown output format %q (table|json|yaml)", opts.output)
		},
	}
	rootCmd.SetOut(out)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.server, "server", "s", envDefault("WAITLIST_SERVER", "http://localhost:8080"), "waitlist server URL")
	flags.StringVar(&opts.secret, "secret", os.Getenv("WAITLIST_ADMIN_SECRET"), "admin secret for list, delete and stats")
	flags.StringVarP(&opts.output, "output", "o", "table", "output format: table, json or yaml")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "HTTP timeout")

	rootCmd.AddCommand(
		joinCmd(opts),
		statusCmd(opts),
		countCmd(opts),
		listCmd(opts),
		deleteCmd(opts),
		statsCmd(opts),
		versionCmd(),
	)
	return rootCmd
}

func envDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func (o *rootOptions) client() *client {
	return newClient(o.server, o.secret, o.timeout)
}

func (o *rootOptions) requireSecret() error {
	if o.secret == "" {
		return fmt.Errorf("admin secret required (--secret or WAITLIST_ADMIN_SECRET)")
	}
	return nil
}

func joinCmd(opts *rootOptions) *cobra.Command {
	var ref string
	cmd := &cobra.Command{
		Use:   "join [email]",
		Short: "Add an email to the waitlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.client().Join(cmd.Context(), args[0], ref)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, res, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "Message:\t%s\n", res.Message)
				fmt.Fprintf(w, "Referral code:\t%s\n", res.ReferralCode)
				fmt.Fprintf(w, "Position:\t%d\n", res.Position)
			})
		},
	}
	cmd.Flags().StringVar(&ref, "ref", "", "referral code of whoever invited this email")
	return cmd
}

func statusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status [referral-code]",
		Short: "Show position and referrals for a referral code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.client().Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, st, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "Referral code:\t%s\n", st.ReferralCode)
				fmt.Fprintf(w, "Position:\t%d of %d\n", st.Position, st.TotalCount)
				fmt.Fprintf(w, "Referrals:\t%d\n", st.ReferralCount)
			})
		},
	}
}

func countCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Show how many people joined",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client().Count(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, c, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "Count:\t%d\n", c.Count)
			})
		},
	}
}

func listCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List every entry ordered by position",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireSecret(); err != nil {
				return err
			}
			l, err := opts.client().List(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, l, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "POSITION\tEMAIL\tCODE\tREFERRALS\tREFERRED BY\tJOINED AT")
				for _, u := range l.Users {
					ref := "-"
					if u.ReferredBy != nil {
						ref = *u.ReferredBy
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n", u.Position, u.Email, u.ReferralCode, u.ReferralCount, ref, u.JoinedAt)
				}
				fmt.Fprintf(w, "\nTotal:\t%d\n", l.Count)
			})
		},
	}
}

func deleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete [email]",
		Aliases: []string{"rm"},
		Short:   "Remove an entry from the waitlist",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireSecret(); err != nil {
				return err
			}
			res, err := opts.client().Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, res, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "%s:\t%s\n", res.Message, res.Email)
			})
		},
	}
}

func statsCmd(opts *rootOptions) *cobra.Command {
	var window string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show waitlist event counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireSecret(); err != nil {
				return err
			}
			s, err := opts.client().Stats(cmd.Context(), window)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, s, func(w *tabwriter.Writer) {
				if s.Window == "" {
					fmt.Fprintln(w, "EVENT\tTOTAL")
				} else {
					fmt.Fprintf(w, "EVENT\tTOTAL\tLAST %s\n", s.Window)
				}
				kinds := make([]string, 0, len(s.Totals))
				for k := range s.Totals {
					kinds = append(kinds, k)
				}
				slices.Sort(kinds)
				for _, k := range kinds {
					if s.Window == "" {
						fmt.Fprintf(w, "%s\t%d\n", k, s.Totals[k])
					} else {
						fmt.Fprintf(w, "%s\t%d\t%d\n", k, s.Totals[k], s.Recent[k])
					}
				}
			})
		},
	}
	cmd.Flags().StringVar(&window, "window", "", "also sum events from the last window (e.g. 15m, 1h)")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "waitlistctl version %s\n", Version)
		},
	}
}

// render escreve v no formato pedido; table usa a função de tabela.
func render(out io.Writer, format string, v any, table func(w *tabwriter.Writer)) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		table(w)
		return w.Flush()
	}
}
