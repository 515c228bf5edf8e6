package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/config"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/identity"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage server users",
	Long: `Manage the users allowed to log in to the compute server.

Users are stored in the server configuration file with bcrypt password
hashes. Changes take effect the next time the server starts.`,
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

var userRemoveCmd = &cobra.Command{
	Use:     "remove <username>",
	Aliases: []string{"delete"},
	Short:   "Remove a user",
	Args:    cobra.ExactArgs(1),
	RunE:    runUserRemove,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Args:  cobra.NoArgs,
	RunE:  runUserList,
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd <username>",
	Short: "Change a user's password",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserPasswd,
}

func init() {
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userRemoveCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userPasswdCmd)
}

// loadConfigForEdit loads the configuration together with the path user
// changes will be written back to. Editing users requires an existing
// config file, so a missing one is an error with instructions rather than a
// silent fall-back to defaults.
func loadConfigForEdit() (*config.Config, string, error) {
	path := GetConfigFile()
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	username := args[0]

	cfg, path, err := loadConfigForEdit()
	if err != nil {
		return err
	}

	for _, u := range cfg.Users {
		if u.Username == username {
			return fmt.Errorf("user %q already exists", username)
		}
	}

	password, err := promptNewPassword()
	if err != nil {
		return err
	}

	hash, err := identity.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	cfg.Users = append(cfg.Users, config.UserConfig{
		Username:     username,
		PasswordHash: hash,
	})

	if err := config.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("User %q added to %s\n", username, path)
	fmt.Println("Restart the server for the change to take effect.")
	return nil
}

func runUserRemove(cmd *cobra.Command, args []string) error {
	username := args[0]

	cfg, path, err := loadConfigForEdit()
	if err != nil {
		return err
	}

	kept := cfg.Users[:0]
	found := false
	for _, u := range cfg.Users {
		if u.Username == username {
			found = true
			continue
		}
		kept = append(kept, u)
	}
	if !found {
		return fmt.Errorf("user %q not found", username)
	}
	cfg.Users = kept

	if err := config.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("User %q removed from %s\n", username, path)
	fmt.Println("Restart the server for the change to take effect.")
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfigForEdit()
	if err != nil {
		return err
	}

	if len(cfg.Users) == 0 {
		fmt.Println("No users configured.")
		fmt.Println("Add one with: computeserver user add <username>")
		return nil
	}

	fmt.Printf("%-24s %s\n", "USERNAME", "STATUS")
	for _, u := range cfg.Users {
		status := "enabled"
		if u.Disabled {
			status = "disabled"
		}
		fmt.Printf("%-24s %s\n", u.Username, status)
	}
	return nil
}

func runUserPasswd(cmd *cobra.Command, args []string) error {
	username := args[0]

	cfg, path, err := loadConfigForEdit()
	if err != nil {
		return err
	}

	idx := -1
	for i, u := range cfg.Users {
		if u.Username == username {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("user %q not found", username)
	}

	password, err := promptNewPassword()
	if err != nil {
		return err
	}

	hash, err := identity.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	cfg.Users[idx].PasswordHash = hash

	if err := config.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Password updated for user %q\n", username)
	fmt.Println("Restart the server for the change to take effect.")
	return nil
}

// promptNewPassword asks for a password twice and validates it.
func promptNewPassword() (string, error) {
	password, err := promptPassword("Password: ")
	if err != nil {
		return "", err
	}
	if err := identity.ValidatePassword(password); err != nil {
		return "", err
	}

	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", fmt.Errorf("passwords do not match")
	}
	return password, nil
}

// promptPassword reads a password without echo when stdin is a terminal,
// falling back to a plain line read otherwise (tests, pipes).
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)

	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(raw), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
