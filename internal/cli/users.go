package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/funyblog/funyblog/internal/auth"
	"github.com/funyblog/funyblog/internal/config"
	"github.com/funyblog/funyblog/internal/database"
	"github.com/funyblog/funyblog/internal/repository"
)

func newCreateAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-admin <username>",
		Short: "Create an admin account (password read from the terminal or stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := strings.TrimSpace(args[0])
			if username == "" {
				return errors.New("username must not be empty")
			}
			return withUsers(cmd, func(cfg config.Config, users *repository.UserRepo) error {
				password, err := readPassword(cmd, true)
				if err != nil {
					return err
				}
				hash, err := auth.HashPassword(password, cfg.BcryptCost)
				if err != nil {
					return err
				}
				id, err := users.Create(cmd.Context(), username, hash)
				if errors.Is(err, repository.ErrUsernameExists) {
					return fmt.Errorf("user %q already exists", username)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %q (id %d)\n", username, id)
				return nil
			})
		},
	}
}

func newSetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-password <username>",
		Short: "Replace an admin's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := strings.TrimSpace(args[0])
			return withUsers(cmd, func(cfg config.Config, users *repository.UserRepo) error {
				password, err := readPassword(cmd, true)
				if err != nil {
					return err
				}
				hash, err := auth.HashPassword(password, cfg.BcryptCost)
				if err != nil {
					return err
				}
				if err := users.UpdatePassword(cmd.Context(), username, hash); err != nil {
					if errors.Is(err, repository.ErrNotFound) {
						return fmt.Errorf("user %q not found", username)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "password updated for %q\n", username)
				return nil
			})
		},
	}
}

func newHashPasswordCmd() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for a password (for seeding the users table by hand)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("cost") {
				envCost, err := config.LoadBcryptCost()
				if err != nil {
					return err
				}
				cost = envCost
			}
			password, err := readPassword(cmd, false)
			if err != nil {
				return err
			}
			hash, err := auth.HashPassword(password, cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", config.DefaultBcryptCost, "bcrypt cost (defaults to BCRYPT_COST)")
	return cmd
}

// withUsers opens the configured database and runs fn with a repository.
func withUsers(cmd *cobra.Command, fn func(config.Config, *repository.UserRepo) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	newLogger(cmd.ErrOrStderr(), cfg)

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(cfg, repository.NewUserRepo(db))
}

// readPassword prompts with echo disabled when stdin is a terminal and
// otherwise reads the first line of stdin.
func readPassword(cmd *cobra.Command, confirm bool) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		first, err := prompt(cmd.ErrOrStderr(), f, "Password: ")
		if err != nil {
			return "", err
		}
		if confirm {
			second, err := prompt(cmd.ErrOrStderr(), f, "Confirm password: ")
			if err != nil {
				return "", err
			}
			if first != second {
				return "", errors.New("passwords do not match")
			}
		}
		return nonEmpty(first)
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return nonEmpty(strings.TrimRight(line, "\r\n"))
}

func prompt(w io.Writer, f *os.File, label string) (string, error) {
	fmt.Fprint(w, label)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func nonEmpty(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	return password, nil
}
