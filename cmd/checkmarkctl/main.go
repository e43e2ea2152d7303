// Command checkmarkctl performs operator tasks against a Checkmark data dir
// without going through the HTTP API.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"checkmark/api/internal/authpw"
	"checkmark/api/internal/config"
	"checkmark/api/internal/session"
	"checkmark/api/internal/store"
)

func main() {
	if err := newRootCmd(config.Load()).Execute(); err != nil {
		os.Exit(1)
	}
}

type env struct {
	cfg   config.Config
	files *store.Store
}

func newRootCmd(cfg config.Config) *cobra.Command {
	e := &env{cfg: cfg}
	root := &cobra.Command{
		Use:          "checkmarkctl",
		Short:        "Manage users and sessions of a Checkmark data dir",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			e.files = store.New(e.cfg.DataDir)
			return e.files.Init()
		},
	}
	root.PersistentFlags().StringVar(&e.cfg.DataDir, "data-dir", cfg.DataDir, "data directory (CHECKMARK_DATA_DIR)")
	root.AddCommand(
		e.createUserCmd(),
		e.resetPasswordCmd(),
		e.clearSessionsCmd(),
		e.listUsersCmd(),
	)
	return root
}

func (e *env) createUserCmd() *cobra.Command {
	var password string
	var admin bool
	cmd := &cobra.Command{
		Use:   "create-user <username>",
		Short: "Create a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := authpw.NewService(e.files).Register(cmd.Context(), strings.TrimSpace(args[0]), password, admin)
			if err != nil {
				return err
			}
			role := "user"
			if user.IsAdmin {
				role = "admin"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s\n", role, user.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant admin rights")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (e *env) resetPasswordCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "reset-password <username>",
		Short: "Set a new password for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := authpw.NewService(e.files).ResetPassword(cmd.Context(), args[0], password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "new password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (e *env) clearSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-sessions",
		Short: "Sign every user out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, closeFn, err := e.sessionStore()
			if err != nil {
				return err
			}
			defer closeFn()
			if err := sessions.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all sessions cleared")
			return nil
		},
	}
}

func (e *env) listUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-users",
		Short: "List user accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := e.files.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			return writeUsers(cmd.OutOrStdout(), users)
		},
	}
}

// sessionStore opens the same backend the server uses.
func (e *env) sessionStore() (session.Store, func(), error) {
	if strings.TrimSpace(e.cfg.RedisURL) == "" {
		return session.NewFileStore(e.files), func() {}, nil
	}
	redisStore, err := session.NewRedisStore(e.cfg.RedisURL, e.cfg.SessionTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return redisStore, func() { _ = redisStore.Close() }, nil
}

func writeUsers(out io.Writer, users []store.User) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tADMIN\tAPI KEY\tCREATED")
	for _, user := range users {
		fmt.Fprintf(tw, "%s\t%t\t%t\t%s\n", user.Username, user.IsAdmin, user.APIKey != "", user.CreatedAt.Format("2006-01-02"))
	}
	return tw.Flush()
}
