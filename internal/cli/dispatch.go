package cli

import (
	"encoding/json"
	"os"

	"github.com/ogulcanaydogan/listing-alerts/pkg/model"
	"github.com/spf13/cobra"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Notify the alerts matching a listing",
	Long:  `Run the matching and notification pipeline for a single published listing.`,
	RunE:  runDispatch,
}

func init() {
	rootCmd.AddCommand(dispatchCmd)
	dispatchCmd.Flags().String("listing-id", "", "Listing id")
	dispatchCmd.Flags().String("title", "", "Listing title")
	dispatchCmd.Flags().String("category", "", "Listing category slug")
	dispatchCmd.Flags().String("location", "", "Listing location")
	dispatchCmd.Flags().Float64("budget", 0, "Listing budget")
	_ = dispatchCmd.MarkFlagRequired("listing-id")
	_ = dispatchCmd.MarkFlagRequired("title")
	_ = dispatchCmd.MarkFlagRequired("category")
}

func runDispatch(cmd *cobra.Command, _ []string) error {
	a, err := initCommandApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	flags := cmd.Flags()
	var listing model.Listing
	listing.ID, _ = flags.GetString("listing-id")
	listing.Title, _ = flags.GetString("title")
	listing.Category, _ = flags.GetString("category")
	listing.Location, _ = flags.GetString("location")
	listing.Budget, _ = flags.GetFloat64("budget")

	resp, err := a.orchestrator.Dispatch(cmd.Context(), listing)
	if err != nil {
		return userError(err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
