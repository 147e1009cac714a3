package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ogulcanaydogan/listing-alerts/pkg/alerting"
	"github.com/ogulcanaydogan/listing-alerts/pkg/model"
	"github.com/spf13/cobra"
)

var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Manage listing alerts",
}

var alertCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an alert",
	RunE:  runAlertCreate,
}

var alertListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the alerts of an owner",
	RunE:  runAlertList,
}

var alertUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update an alert",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertUpdate,
}

var alertDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an alert",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertDelete,
}

func init() {
	rootCmd.AddCommand(alertCmd)
	alertCmd.AddCommand(alertCreateCmd, alertListCmd, alertUpdateCmd, alertDeleteCmd)

	alertCmd.PersistentFlags().StringP("owner", "o", "", "Owner user id")
	_ = alertCmd.MarkPersistentFlagRequired("owner")

	for _, c := range []*cobra.Command{alertCreateCmd, alertUpdateCmd} {
		c.Flags().String("label", "", "Alert name (generated from filters when empty)")
		c.Flags().StringSlice("category", nil, "Category slug (repeatable or comma-separated)")
		c.Flags().StringSlice("location", nil, "Location (repeatable or comma-separated)")
		c.Flags().StringSlice("keyword", nil, "Title keyword (repeatable or comma-separated)")
		c.Flags().Float64("min-budget", 0, "Minimum budget")
		c.Flags().String("max-budget", "", `Maximum budget ("none" removes the limit)`)
		c.Flags().Bool("email", true, "Notify by email")
		c.Flags().Bool("push", false, "Notify by push")
		c.Flags().String("frequency", "immediate", "Frequency (immediate, daily, weekly)")
	}
	alertUpdateCmd.Flags().Bool("active", true, "Whether the alert is active")
}

func runAlertCreate(cmd *cobra.Command, _ []string) error {
	a, err := initCommandApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	flags := cmd.Flags()
	owner, _ := flags.GetString("owner")
	label, _ := flags.GetString("label")
	categories, _ := flags.GetStringSlice("category")
	locations, _ := flags.GetStringSlice("location")
	keywords, _ := flags.GetStringSlice("keyword")
	minBudget, _ := flags.GetFloat64("min-budget")
	maxRaw, _ := flags.GetString("max-budget")
	email, _ := flags.GetBool("email")
	push, _ := flags.GetBool("push")
	frequency, _ := flags.GetString("frequency")

	maxBudget, err := parseMaxBudget(maxRaw)
	if err != nil {
		return err
	}

	alert, err := a.alerts.Create(cmd.Context(), alerting.CreateInput{
		OwnerID: owner,
		Label:   label,
		Filters: model.Filters{
			Categories: categories,
			Locations:  locations,
			Keywords:   keywords,
			Budget:     model.BudgetRange{Min: minBudget, Max: maxBudget},
		},
		EmailEnabled: &email,
		PushEnabled:  &push,
		Frequency:    model.Frequency(frequency),
	})
	if err != nil {
		return userError(err)
	}

	fmt.Printf("Alert created:\n")
	printAlert(os.Stdout, alert)
	return nil
}

func runAlertList(cmd *cobra.Command, _ []string) error {
	a, err := initCommandApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	owner, _ := cmd.Flags().GetString("owner")
	alerts, err := a.alerts.List(cmd.Context(), owner)
	if err != nil {
		return userError(err)
	}

	if len(alerts) == 0 {
		fmt.Println("No alerts. Use 'alertctl alert create' to add one.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tLABEL\tCHANNELS\tFREQUENCY\tACTIVE\tMATCHES\tLAST NOTIFIED\n")
	for _, al := range alerts {
		last := "-"
		if al.LastNotifiedAt != nil {
			last = al.LastNotifiedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%d\t%s\n",
			al.ID, al.Label, strings.Join(al.Channels.Enabled(), ","),
			al.Frequency, al.Active, al.MatchCount, last,
		)
	}
	w.Flush()

	return nil
}

func runAlertUpdate(cmd *cobra.Command, args []string) error {
	a, err := initCommandApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	flags := cmd.Flags()
	owner, _ := flags.GetString("owner")

	var p alerting.Patch
	if flags.Changed("label") {
		v, _ := flags.GetString("label")
		p.Label = &v
	}
	if flags.Changed("category") {
		v, _ := flags.GetStringSlice("category")
		p.Categories = &v
	}
	if flags.Changed("location") {
		v, _ := flags.GetStringSlice("location")
		p.Locations = &v
	}
	if flags.Changed("keyword") {
		v, _ := flags.GetStringSlice("keyword")
		p.Keywords = &v
	}
	if flags.Changed("min-budget") {
		v, _ := flags.GetFloat64("min-budget")
		p.MinBudget = &v
	}
	if flags.Changed("max-budget") {
		raw, _ := flags.GetString("max-budget")
		v, err := parseMaxBudget(raw)
		if err != nil {
			return err
		}
		p.MaxBudget = v
		p.ClearMaxBudget = v == nil
	}
	if flags.Changed("email") {
		v, _ := flags.GetBool("email")
		p.EmailEnabled = &v
	}
	if flags.Changed("push") {
		v, _ := flags.GetBool("push")
		p.PushEnabled = &v
	}
	if flags.Changed("frequency") {
		v, _ := flags.GetString("frequency")
		f := model.Frequency(v)
		p.Frequency = &f
	}
	if flags.Changed("active") {
		v, _ := flags.GetBool("active")
		p.Active = &v
	}

	alert, err := a.alerts.Update(cmd.Context(), args[0], owner, p)
	if err != nil {
		return userError(err)
	}

	fmt.Printf("Alert updated:\n")
	printAlert(os.Stdout, alert)
	return nil
}

func runAlertDelete(cmd *cobra.Command, args []string) error {
	a, err := initCommandApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	owner, _ := cmd.Flags().GetString("owner")
	if err := a.alerts.Delete(cmd.Context(), args[0], owner); err != nil {
		return userError(err)
	}

	fmt.Printf("Alert %s deleted\n", args[0])
	return nil
}

func initCommandApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return initApp(cmd.Context(), cfg)
}

// parseMaxBudget returns nil for an empty value or "none".
func parseMaxBudget(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "none") {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid --max-budget %q: %w", raw, err)
	}
	return &v, nil
}

func printAlert(w io.Writer, a *model.Alert) {
	maxBudget := "none"
	if a.Budget.Max != nil {
		maxBudget = strconv.FormatFloat(*a.Budget.Max, 'f', -1, 64)
	}
	fmt.Fprintf(w, "  ID:         %s\n", a.ID)
	fmt.Fprintf(w, "  Label:      %s\n", a.Label)
	fmt.Fprintf(w, "  Categories: %s\n", strings.Join(a.Categories, ", "))
	fmt.Fprintf(w, "  Locations:  %s\n", strings.Join(a.Locations, ", "))
	fmt.Fprintf(w, "  Keywords:   %s\n", strings.Join(a.Keywords, ", "))
	fmt.Fprintf(w, "  Budget:     %s - %s\n", strconv.FormatFloat(a.Budget.Min, 'f', -1, 64), maxBudget)
	fmt.Fprintf(w, "  Channels:   %s\n", strings.Join(a.Channels.Enabled(), ", "))
	fmt.Fprintf(w, "  Frequency:  %s\n", a.Frequency)
	fmt.Fprintf(w, "  Active:     %t\n", a.Active)
}
