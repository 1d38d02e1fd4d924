package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harun/yordamchi/internal/config"
	"github.com/harun/yordamchi/pkg/registry"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect the user registry",
}

var usersCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print how many users the bot has seen",
	Args:  cobra.NoArgs,
	RunE:  runUsersCount,
}

var usersShowCmd = &cobra.Command{
	Use:   "show <user-id>",
	Short: "Show what the registry knows about a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersShow,
}

func init() {
	usersCmd.AddCommand(usersCountCmd)
	usersCmd.AddCommand(usersShowCmd)
	rootCmd.AddCommand(usersCmd)
}

func runUsersCount(cmd *cobra.Command, args []string) error {
	store, err := openRegistry()
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Count(context.Background())
	if err != nil {
		return err
	}
	cmd.Printf("Registered users: %d\n", n)
	return nil
}

func runUsersShow(cmd *cobra.Command, args []string) error {
	userID, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q", args[0])
	}

	store, err := openRegistry()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(context.Background(), userID)
	if errors.Is(err, registry.ErrNotFound) {
		cmd.Printf("User %d is not registered.\n", userID)
		return nil
	}
	if err != nil {
		return err
	}

	printRecord(cmd, rec)
	return nil
}

func printRecord(cmd *cobra.Command, rec registry.Record) {
	cmd.Printf("User: %d\n", rec.UserID)
	if rec.Username != "" {
		cmd.Printf("Username: @%s\n", rec.Username)
	}
	if rec.FirstName != "" {
		cmd.Printf("Name: %s\n", rec.FirstName)
	}
	if rec.Language != "" {
		cmd.Printf("Language: %s\n", rec.Language)
	}
	cmd.Printf("First seen: %s\n", rec.FirstSeen.Format(time.RFC3339))
	cmd.Printf("Last seen: %s\n", rec.LastSeen.Format(time.RFC3339))
	cmd.Printf("Interactions: %d\n", rec.Interactions)
}

func openRegistry() (registry.Store, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return registry.Open(registry.Config{Driver: cfg.Registry.Driver, Path: cfg.Registry.Path})
}
