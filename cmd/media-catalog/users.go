package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"media-catalog/internal/auth"
	"media-catalog/internal/database"
	"media-catalog/internal/startup"
)

const (
	defaultTimeout        = 30 * time.Second
	randomPasswordLength  = 16
	userNameForbiddenRune = "/\\"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage catalog users",
		Long: `Each user owns the media directory named after them below STORAGE_DIR and
authenticates to the HTTP API with basic auth.`,
	}
	cmd.AddCommand(newUsersAddCmd(), newUsersListCmd(), newUsersRemoveCmd())
	return cmd
}

// openRepo opens only the catalog database.
func openRepo(ctx context.Context) (database.Repository, error) {
	cfg, err := startup.ReadConfig()
	if err != nil {
		return nil, err
	}
	repo, err := database.Open(ctx, cfg.DatabaseURL, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return repo, nil
}

func newUsersAddCmd() *cobra.Command {
	var displayName string
	var random bool
	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Add a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := validateUserName(name); err != nil {
				return err
			}

			var password string
			var err error
			if random {
				password, err = auth.RandomPassword(randomPasswordLength)
			} else {
				password, err = promptPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			}
			if err != nil {
				return err
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()
			repo, err := openRepo(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			if displayName == "" {
				displayName = name
			}
			user := &database.User{UserName: name, DisplayName: displayName, PasswordHash: hash}
			if err := repo.InsertUser(ctx, user); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Added user %s (id %d)\n", user.UserName, user.ID)
			if random {
				fmt.Fprintf(out, "Password: %s\n", password)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&displayName, "display-name", "", "Display name (defaults to the user name)")
	cmd.Flags().BoolVar(&random, "random", false, "Generate a random password and print it")
	return cmd
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()
			repo, err := openRepo(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			users, err := repo.GetUsers(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUSER\tDISPLAY NAME")
			for _, u := range users {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", u.ID, u.UserName, u.DisplayName)
			}
			return tw.Flush()
		},
	}
}

func newUsersRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <username>",
		Short: "Remove a user and their catalog entries",
		Long: `Remove deletes the user and every catalog entry they own. Media files and
derivatives on disk are left in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()
			repo, err := openRepo(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.DeleteUser(ctx, args[0]); err != nil {
				if errors.Is(err, database.ErrNotFound) {
					return fmt.Errorf("no user named %q", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed user %s\n", args[0])
			return nil
		},
	}
}

// validateUserName rejects names that cannot be a single directory below
// the storage root.
func validateUserName(name string) error {
	switch {
	case name == "" || name == "." || name == "..":
		return fmt.Errorf("invalid user name %q", name)
	case strings.ContainsAny(name, userNameForbiddenRune):
		return fmt.Errorf("user name %q must not contain path separators", name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("user name %q must not start with a dot", name)
	}
	return nil
}

// promptPassword reads a password twice without echo from a terminal, or
// once per line from any other input.
func promptPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		password, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("error reading password: %w", err)
		}

		fmt.Fprint(prompt, "Confirm Password: ")
		confirm, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("error reading password: %w", err)
		}
		if !bytes.Equal(password, confirm) {
			return "", errors.New("passwords do not match")
		}
		return string(password), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("error reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("no password given")
	}
	return password, nil
}
