package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewRunCmd создаёт группу команд для управления runs.
func NewRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Manage property search runs",
	}

	cmd.AddCommand(
		newRunStartCmd(clientFn, outputFn),
		newRunListCmd(clientFn, outputFn),
		newRunShowCmd(clientFn, outputFn),
		newRunReportCmd(clientFn, outputFn),
		newRunCancelCmd(clientFn, outputFn),
		newRunAdvanceCmd(clientFn, outputFn),
		newRunRewindCmd(clientFn, outputFn),
	)

	return cmd
}

func newRunStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var criteria CriteriaRequest
	var style string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new property search run",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.StartRun(StartRunRequest{
				Criteria:    criteria,
				DesignStyle: style,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run %s started", run.ID))
			out.Print(
				[]string{"ID", "STATUS", "LOCATION", "TYPE"},
				[][]string{{run.ID, run.Status, run.Criteria.Location, run.Criteria.PropertyType}},
				run,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&criteria.Location, "location", "", "Target area (required)")
	cmd.Flags().StringVar(&criteria.PropertyType, "type", "apartment", "Property type")
	cmd.Flags().IntVar(&criteria.Bedrooms, "bedrooms", 0, "Number of bedrooms")
	cmd.Flags().IntVar(&criteria.Bathrooms, "bathrooms", 0, "Number of bathrooms")
	cmd.Flags().Float64Var(&criteria.MaxPrice, "max-price", 0, "Maximum rent price")
	cmd.Flags().StringVar(&criteria.RentFrequency, "rent-frequency", "", "Rent frequency (monthly, yearly)")
	cmd.Flags().StringVar(&criteria.AdditionalRequirements, "requirements", "", "Free-form requirements")
	cmd.Flags().StringVar(&style, "style", "", "Default interior design style")
	cmd.MarkFlagRequired("location")

	return cmd
}

func newRunListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			runs, err := client.ListRuns(ListRunsOpts{Status: status, Limit: limit})
			if err != nil {
				return err
			}

			headers := []string{"ID", "STATUS", "LOCATION", "REWINDS", "CREATED"}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{r.ID, r.Status, r.Criteria.Location, strconv.Itoa(r.Rewinds), r.CreatedAt}
			}

			out.Print(headers, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (INIT, DISCOVERY_RUNNING, AWAITING_FEEDBACK, SCORING_RUNNING, DESIGN_RUNNING, COMPLETED, FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newRunShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show run status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.GetRun(args[0])
			if err != nil {
				return err
			}

			rows := [][]string{
				{"ID", run.ID},
				{"Status", run.Status},
				{"Location", run.Criteria.Location},
				{"Type", run.Criteria.PropertyType},
				{"Style", run.DesignStyle},
				{"Rewinds", strconv.Itoa(run.Rewinds)},
			}
			if run.Error != "" {
				rows = append(rows, []string{"Error", run.Error})
			}

			out.Details(rows, run)

			// Кандидаты открытого запроса — отдельной таблицей.
			if run.PendingFeedback != nil && !out.JSONMode() {
				out.Success("\nAwaiting feedback. Candidates:")
				candRows := make([][]string, len(run.PendingFeedback.Candidates))
				for i, c := range run.PendingFeedback.Candidates {
					candRows[i] = []string{
						c.ID,
						c.Address,
						fmt.Sprintf("%.0f", c.Price),
						fmt.Sprintf("%.0f", c.Bedrooms),
						fmt.Sprintf("%.1f", c.QualityScore),
					}
				}
				out.Table([]string{"ID", "ADDRESS", "PRICE", "BEDS", "QUALITY"}, candRows)
			}
			return nil
		},
	}

	return cmd
}

func newRunReportCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report RUN_ID",
		Short: "Show the final report of a completed run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			report, err := client.GetReport(args[0])
			if err != nil {
				return err
			}

			headers := []string{"ID", "ADDRESS", "PRICE", "LOCATION_SCORE", "STYLE", "ROOMS"}
			rows := make([][]string, len(report.Items))
			for i, item := range report.Items {
				rows[i] = []string{
					item.Listing.ID,
					item.Listing.Address,
					fmt.Sprintf("%.0f", item.Listing.Price),
					fmt.Sprintf("%.1f", item.Location.OverallScore),
					item.Design.Style,
					strconv.Itoa(len(item.Design.Rooms)),
				}
			}

			out.Print(headers, rows, report)
			return nil
		},
	}

	return cmd
}

func newRunCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel RUN_ID",
		Short: "Cancel a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.CancelRun(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run %s cancelled", run.ID))
			return nil
		},
	}

	return cmd
}

func newRunAdvanceCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var ids []string
	var style string
	var styles map[string]string

	cmd := &cobra.Command{
		Use:   "advance RUN_ID",
		Short: "Advance a waiting run with selected listings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.SubmitFeedback(args[0], SubmitFeedbackRequest{
				Type:       "advance",
				ListingIDs: ids,
				Style:      style,
				Styles:     styles,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run %s advanced with %d listing(s)", run.ID, len(ids)))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&ids, "id", nil, "Selected listing IDs (repeatable)")
	cmd.Flags().StringVar(&style, "style", "", "Design style for all selected listings")
	cmd.Flags().StringToStringVar(&styles, "style-for", nil, "Per-listing style, LISTING_ID=STYLE (repeatable)")
	cmd.MarkFlagRequired("id")

	return cmd
}

func newRunRewindCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rewind RUN_ID [AMENDMENT]",
		Short: "Rewind a waiting run back to discovery with a criteria amendment",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var amendment string
			if len(args) == 2 {
				amendment = args[1]
			}

			run, err := client.SubmitFeedback(args[0], SubmitFeedbackRequest{
				Type:      "rewind",
				Amendment: amendment,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run %s rewound (rewind %d)", run.ID, run.Rewinds))
			return nil
		},
	}

	return cmd
}
