package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/me/blogd/internal/auth"
	"github.com/me/blogd/internal/store"
	"github.com/me/blogd/internal/validate"
	"github.com/me/blogd/pkg/model"
)

func newCreateAdminCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "create-admin <username> <email>",
		Short: "Create an admin user",
		Long:  "Create a user with the admin role. The password is prompted for unless --password is given.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				password, err = promptPassword("Password: ")
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
			}

			reg, apiErr := validate.RegistrationInput(args[0], args[1], password)
			if apiErr != nil {
				return errors.New(apiErr.Message)
			}

			hasher := auth.NewHasher(auth.DefaultCost, 1)
			hash, err := hasher.Hash(cmd.Context(), reg.Password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			user := &model.User{
				Username:     reg.Username,
				Email:        reg.Email,
				PasswordHash: hash,
				Role:         model.RoleAdmin,
			}
			if err := st.CreateUser(cmd.Context(), user); err != nil {
				if errors.Is(err, store.ErrDuplicate) {
					return fmt.Errorf("username or email already exists")
				}
				return fmt.Errorf("create admin: %w", err)
			}

			fmt.Printf("Admin user %s created (id %d)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Password for the new admin (prompted if omitted)")
	return cmd
}

// promptPassword reads a password without echo when stdin is a terminal,
// and falls back to a plain line read when it is a pipe.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
