package cli

import (
	"fmt"

	"github.com/ogulcanaydogan/listing-alerts/pkg/model"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage the notification user directory",
}

var userSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or update a user",
	RunE:  runUserSet,
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userSetCmd)

	userSetCmd.Flags().String("id", "", "User id")
	userSetCmd.Flags().String("email", "", "Email address (empty disables email)")
	userSetCmd.Flags().String("name", "", "Display name")
	_ = userSetCmd.MarkFlagRequired("id")
}

func runUserSet(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	id, _ := cmd.Flags().GetString("id")
	email, _ := cmd.Flags().GetString("email")
	name, _ := cmd.Flags().GetString("name")

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	user := &model.User{ID: id, DisplayName: name}
	if email != "" {
		user.Email = &email
	}
	if err := store.UpsertUser(cmd.Context(), user); err != nil {
		return err
	}

	fmt.Printf("User %s saved\n", id)
	return nil
}
