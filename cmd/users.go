package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-lending/configs"
	"library-lending/internal/handlers"
	"library-lending/internal/utils"
)

func newHashPasswordCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print the bcrypt hash of a password read from the terminal or stdin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
			if err != nil {
				return err
			}
			hash, err := utils.HashPassword(password, cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", 0, "bcrypt cost (0 uses the default)")
	return cmd
}

func newCreateUserCmd() *cobra.Command {
	var (
		name    string
		email   string
		isAdmin bool
	)
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user in the configured store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
			if err != nil {
				return err
			}
			return createUser(cmd.Context(), cmd.OutOrStdout(), name, email, password, isAdmin)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "grant admin rights")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func createUser(ctx context.Context, out io.Writer, name, email, password string, isAdmin bool) error {
	cfg, err := configs.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.StoreDriver == configs.DriverMemory {
		return errors.New("create-user needs a persistent store driver")
	}

	log, err := utils.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	user, err := handlers.NewUser(name, email, password, isAdmin, 0, time.Now())
	if err != nil {
		return err
	}

	be, err := openBackend(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer be.close(context.Background())

	if err := be.users.CreateUser(ctx, &user); err != nil {
		return errors.Wrap(err, "create user")
	}
	fmt.Fprintf(out, "created user %s (%s) admin=%t\n", user.ID, user.Email, user.IsAdmin)
	return nil
}

// readPassword masks input on a terminal and reads one line otherwise.
func readPassword(in io.Reader, prompt io.Writer, label string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, label)
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", errors.Wrap(err, "read password")
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", errors.Wrap(err, "read password")
	}
	password := strings.TrimSpace(line)
	if password == "" {
		return "", errors.New("empty password")
	}
	return password, nil
}
