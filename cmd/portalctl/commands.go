package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/impact-portal/internal/identity"
	"github.com/terra-clan/impact-portal/internal/mappin"
	"github.com/terra-clan/impact-portal/pkg/client"
)

var errNoToken = errors.New("no token: pass --token or set PORTAL_TOKEN")

// options are the flags shared by every command
type options struct {
	backend string
	token   string
	timeout time.Duration
	out     io.Writer
}

func (o *options) client() *client.Client {
	return client.NewClient(o.backend, client.WithTimeout(o.timeout))
}

func (o *options) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), o.timeout)
}

// session returns the token and its decoded subject
func (o *options) session() (string, identity.Claims, error) {
	if o.token == "" {
		return "", identity.Claims{}, errNoToken
	}
	reader := identity.NewReader(slog.New(slog.NewTextHandler(io.Discard, nil)))
	claims := reader.Read(identity.StaticToken(o.token))
	if claims.Subject == "" {
		return "", claims, errors.New("token carries no user id")
	}
	return o.token, claims, nil
}

func (o *options) printJSON(v interface{}) error {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{out: out}

	rootCmd := &cobra.Command{
		Use:           "portalctl",
		Short:         "Command line client for the impact backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVar(&opts.backend, "backend", envOr("BACKEND_URL", "http://localhost:3001"), "Backend base URL (or set BACKEND_URL)")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("PORTAL_TOKEN"), "Bearer token (or set PORTAL_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(newLoginCmd(opts))
	rootCmd.AddCommand(newWhoAmICmd(opts))
	rootCmd.AddCommand(newProfileCmd(opts))
	rootCmd.AddCommand(newPinsCmd(opts))

	return rootCmd
}

// newLoginCmd exchanges credentials for a token and prints it
func newLoginCmd(opts *options) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print the bearer token",
		Long: `Sign in with email and password and print the bearer token.

Export it to use the other commands:
  export PORTAL_TOKEN=$(portalctl login --email you@example.com --password ...)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context()
			defer cancel()

			resp, err := opts.client().Login(ctx, client.LoginRequest{Email: email, Password: password})
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if resp.Token == "" {
				return errors.New("login failed: backend returned no token")
			}
			fmt.Fprintln(opts.out, resp.Token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

// newWhoAmICmd decodes the token locally; nothing is verified
func newWhoAmICmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the user the token belongs to",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, claims, err := opts.session()
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "user id:  %s\n", claims.Subject)
			if claims.Username != "" {
				fmt.Fprintf(opts.out, "username: %s\n", claims.Username)
			}
			return nil
		},
	}
}

func newProfileCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Print the signed-in user's profile as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, claims, err := opts.session()
			if err != nil {
				return err
			}

			ctx, cancel := opts.context()
			defer cancel()

			record, err := opts.client().GetUser(ctx, token, claims.Subject)
			if err != nil {
				return fmt.Errorf("failed to fetch profile: %w", err)
			}
			return opts.printJSON(record.Profile(claims.Subject))
		},
	}
}

func newPinsCmd(opts *options) *cobra.Command {
	var filter mappin.Filter

	cmd := &cobra.Command{
		Use:   "pins",
		Short: "List the map pins of the signed-in user's challenges",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch filter.Category {
			case mappin.CategoryAll, mappin.CategoryChallenge, mappin.CategorySolution:
			default:
				return fmt.Errorf("unknown category %q", filter.Category)
			}

			token, claims, err := opts.session()
			if err != nil {
				return err
			}

			ctx, cancel := opts.context()
			defer cancel()

			challenges, err := opts.client().GetUserChallenges(ctx, token, claims.Subject)
			if err != nil {
				return fmt.Errorf("failed to fetch challenges: %w", err)
			}

			pins := mappin.Project(mappin.FromChallenges(challenges), filter)

			tw := tabwriter.NewWriter(opts.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tLAT\tLNG\tCOLOR")
			for _, p := range pins {
				fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%s\n", p.ID, p.Title, *p.Lat, *p.Lng, p.Color)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&filter.Category, "category", mappin.CategoryAll, "Pin category: all, challenge or solution")
	cmd.Flags().StringVar(&filter.Search, "search", "", "Case-insensitive title or location search")
	return cmd
}
