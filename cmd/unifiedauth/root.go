package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	gocmd "github.com/goliatone/go-command"
	authcommand "github.com/goliatone/go-unifiedauth/command"
	"github.com/goliatone/go-unifiedauth/core"
	authquery "github.com/goliatone/go-unifiedauth/query"
	sqlstore "github.com/goliatone/go-unifiedauth/store/sql"
	"github.com/spf13/cobra"
)

// newRootCommand builds the CLI. Flag defaults come from the environment so
// an explicit flag always wins.
func newRootCommand(out io.Writer, environ map[string]string) (*cobra.Command, error) {
	s, err := loadSettings(environ)
	if err != nil {
		return nil, err
	}

	root := &cobra.Command{
		Use:          "unifiedauth",
		Short:        "Inspect wallet providers and manage unified auth records",
		SilenceUsage: true,
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&s.ConfigPath, "config", s.ConfigPath, "YAML or TOML configuration file")
	flags.StringVar(&s.SnapshotPath, "snapshot", s.SnapshotPath, "recorded host environment (YAML or JSON)")
	flags.StringVarP(&s.Output, "output", "o", s.Output, "output format: yaml or json")
	flags.StringVar(&s.Database.Driver, "db-driver", s.Database.Driver, "database driver: sqlite or postgres")
	flags.StringVar(&s.Database.DSN, "db-dsn", s.Database.DSN, "database connection string")
	flags.BoolVar(&s.CacheUsers, "cache-users", s.CacheUsers, "serve user lookups through the read-through cache")

	root.AddCommand(
		newDiagnoseCommand(&s),
		newTestConnectionCommand(&s),
		newLoginCommand(&s),
		newUsersCommand(&s),
		newTransitionsCommand(&s),
	)
	return root, nil
}

func newDiagnoseCommand(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Report browser and wallet provider details",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, s, runtimeOptions{}, func(ctx context.Context, rt *runtime) error {
				report, err := rt.facade.Queries().RunDiagnostics.Query(ctx, authquery.RunDiagnosticsMessage{})
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), s.Output, report)
			})
		},
	}
}

func newTestConnectionCommand(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "test-connection",
		Short: "Ask the wallet provider for accounts once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, s, runtimeOptions{}, func(ctx context.Context, rt *runtime) error {
				result, err := rt.facade.Queries().TestWalletConnection.Query(ctx, authquery.TestWalletConnectionMessage{})
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), s.Output, result)
			})
		},
	}
}

func newLoginCommand(s *settings) *cobra.Command {
	var (
		email         string
		connectWallet bool
		logout        bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Run a session through the reconciler and print the resolved identity",
		Long: `Starts the reconciler, optionally signs in a registered user and connects the
snapshot wallet, then prints the resolved identity. Every transition is
recorded in the transitions table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, s, runtimeOptions{database: true}, func(ctx context.Context, rt *runtime) error {
				if err := rt.reconciler.Start(ctx); err != nil {
					return err
				}
				commands := rt.facade.Commands()
				if strings.TrimSpace(email) != "" {
					if err := commands.SignIn.Execute(ctx, authcommand.SignInMessage{Email: email}); err != nil {
						return err
					}
				}
				if connectWallet {
					if err := commands.ConnectWallet.Execute(ctx, authcommand.ConnectWalletMessage{}); err != nil {
						return err
					}
				}
				if logout {
					if err := commands.Logout.Execute(ctx, authcommand.LogoutMessage{}); err != nil {
						return err
					}
				}
				model, err := rt.facade.Queries().CurrentIdentity.Query(ctx, authquery.CurrentIdentityMessage{})
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), s.Output, model)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "sign in as the registered user with this email")
	cmd.Flags().BoolVar(&connectWallet, "connect-wallet", false, "connect the snapshot wallet")
	cmd.Flags().BoolVar(&logout, "logout", false, "log out after the other steps")
	return cmd
}

func newUsersCommand(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Create and look up users",
	}

	var input core.CreateUserInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a user by email, wallet address or both",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, s, runtimeOptions{database: true}, func(ctx context.Context, rt *runtime) error {
				collector := gocmd.NewResult[core.User]()
				err := rt.facade.Commands().Register.Execute(gocmd.ContextWithResult(ctx, collector),
					authcommand.RegisterMessage{Input: input})
				if err != nil {
					return err
				}
				user, _ := collector.Load()
				return writeOutput(cmd.OutOrStdout(), s.Output, user)
			})
		},
	}
	create.Flags().StringVar(&input.Email, "email", "", "user email")
	create.Flags().StringVar(&input.Name, "name", "", "display name")
	create.Flags().StringVar(&input.WalletAddress, "wallet", "", "wallet address")

	var lookup authquery.FindUserMessage
	find := &cobra.Command{
		Use:   "find",
		Short: "Find a user by id, email or wallet address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, s, runtimeOptions{database: true}, func(ctx context.Context, rt *runtime) error {
				user, err := rt.facade.Queries().FindUser.Query(ctx, lookup)
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), s.Output, user)
			})
		},
	}
	find.Flags().StringVar(&lookup.ID, "id", "", "user id")
	find.Flags().StringVar(&lookup.Email, "email", "", "user email")
	find.Flags().StringVar(&lookup.WalletAddress, "wallet", "", "wallet address")

	cmd.AddCommand(create, find)
	return cmd
}

func newTransitionsCommand(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transitions",
		Short: "Inspect recorded authentication transitions",
	}

	var (
		method  string
		trigger string
		filter  sqlstore.TransitionFilter
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List transitions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsedMethod, err := core.ParseAuthMethod(method)
			if err != nil {
				return err
			}
			if strings.TrimSpace(method) != "" {
				filter.Method = parsedMethod
			}
			if strings.TrimSpace(trigger) != "" {
				parsedTrigger, err := core.ParseTrigger(trigger)
				if err != nil {
					return err
				}
				filter.Trigger = parsedTrigger
			}
			return withRuntime(cmd, s, runtimeOptions{database: true}, func(ctx context.Context, rt *runtime) error {
				page, err := rt.transitions.List(ctx, filter)
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), s.Output, page)
			})
		},
	}
	list.Flags().StringVar(&method, "method", "", "filter by resulting method")
	list.Flags().StringVar(&trigger, "trigger", "", "filter by trigger")
	list.Flags().IntVar(&filter.Page, "page", 1, "page number")
	list.Flags().IntVar(&filter.PerPage, "per-page", 25, "items per page")

	cmd.AddCommand(list)
	return cmd
}

func withRuntime(
	cmd *cobra.Command,
	s *settings,
	opts runtimeOptions,
	fn func(context.Context, *runtime) error,
) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := newRuntime(ctx, *s, opts)
	if err != nil {
		return fmt.Errorf("unifiedauth: %w", err)
	}
	defer rt.Close()
	return fn(ctx, rt)
}
