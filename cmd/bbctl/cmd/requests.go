package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/mailin-buyback/internal/api/client"
	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

func requestsCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "requests",
		Aliases: []string{"req"},
		Short:   "Manage mail-in buyback requests",
		Long: "Manage mail-in buyback requests through their lifecycle: intake,\n" +
			"kit shipment, assessment, customer decision, and payout or return.",
	}

	root.AddCommand(
		requestListCmd(),
		requestGetCmd(),
		requestCreateCmd(),
		requestKitSentCmd(),
		requestPreviewCmd(),
		requestAssessCmd(),
		requestDecideCmd(),
		requestCompleteCmd(),
		requestRetireCmd(),
		requestReturnCmd(),
	)

	return root
}

func requestListCmd() *cobra.Command {
	var p apiclient.ListParams

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List requests",
		Example: `  bbctl requests list
  bbctl requests list --status assessed,waiting_payment
  bbctl requests list --number MB-20260101-ABC123 --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := newClient().ListRequests(cmd.Context(), p)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), page)
			}
			if len(page.Requests) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No requests found.")
				return nil
			}
			return printRequestTable(cmd.OutOrStdout(), page)
		},
	}

	cmd.Flags().StringSliceVar(&p.Statuses, "status", nil, "filter by status (repeatable or comma-separated)")
	cmd.Flags().StringVar(&p.RequestNumber, "number", "", "filter by request number")
	cmd.Flags().IntVar(&p.Limit, "limit", 0, "maximum results (server default 50)")
	cmd.Flags().IntVar(&p.Offset, "offset", 0, "pagination offset")
	cmd.Flags().StringVar(&p.OrderBy, "order-by", "", "sort column (created_at, updated_at)")

	return cmd
}

func requestGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show request details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newClient().GetRequest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printRequest(cmd, r)
		},
	}
}

func requestCreateCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new request from a YAML or JSON file",
		Long: "Register a new mail-in request. The file holds the customer and the\n" +
			"devices with their self-reported condition, using the API field names.\n" +
			"Estimated prices are computed by the server.",
		Example: `  bbctl requests create --file intake.yaml
  cat intake.json | bbctl requests create --file -`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			var in apiclient.NewRequest
			if err := readDocument(file, cmd.InOrStdin(), &in); err != nil {
				return err
			}
			r, err := newClient().CreateRequest(cmd.Context(), &in)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), r)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created request %s (%s), estimate %s\n",
				r.RequestNumber, r.ID, yen(r.TotalEstimatedPrice))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "intake document (- for stdin)")
	return cmd
}

func requestKitSentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kit-sent <id>",
		Short: "Record that the shipping kit was sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newClient().MarkKitSent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printTransition(cmd, r)
		},
	}
}

func requestPreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview <id> [ITEM_ID:FIELD=VALUE...]",
		Short: "Price assessment edits without saving them",
		Example: `  bbctl requests preview 0b6e... item-1:battery_percent=75
  bbctl requests preview 0b6e... item-1:rank=並品 item-1:nw_status=triangle`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			edits, err := parseEdits(args[1:])
			if err != nil {
				return err
			}
			p, err := newClient().PreviewAssessment(cmd.Context(), args[0], edits)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), p)
			}
			return printPreview(cmd.OutOrStdout(), p)
		},
	}
}

func requestAssessCmd() *cobra.Command {
	var (
		finalPrice int
		photos     []string
	)

	cmd := &cobra.Command{
		Use:   "assess <id> [ITEM_ID:FIELD=VALUE...]",
		Short: "Save the final assessment",
		Long: "Save the inspected condition of each item. Fields not edited keep the\n" +
			"customer's declared value. The final price is recomputed unless\n" +
			"--final-price overrides it.",
		Example: `  bbctl requests assess 0b6e... item-1:battery_percent=75 --photo s3://photos/front.jpg
  bbctl requests assess 0b6e... --final-price 48000`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			edits, err := parseEdits(args[1:])
			if err != nil {
				return err
			}
			a := apiclient.AssessmentRequest{ItemChanges: edits}
			for _, p := range photos {
				a.Photos = append(a.Photos, domain.Photo{Path: p})
			}
			if cmd.Flags().Changed("final-price") {
				a.FinalPrice = &finalPrice
			}
			r, err := newClient().SubmitAssessment(cmd.Context(), args[0], a)
			if err != nil {
				return err
			}
			return printTransition(cmd, r)
		},
	}

	cmd.Flags().IntVar(&finalPrice, "final-price", 0, "override the computed final price")
	cmd.Flags().StringArrayVar(&photos, "photo", nil, "assessment photo path (repeatable)")
	return cmd
}

func requestDecideCmd() *cobra.Command {
	var (
		bank     domain.BankInfo
		bankFile string
	)

	cmd := &cobra.Command{
		Use:   "decide <id> <approve|reject>",
		Short: "Record the customer's decision on the assessed price",
		Long: "Record whether the customer accepts the assessed price. Approving\n" +
			"requires the payout bank account, from flags or --bank-file.",
		Example: `  bbctl requests decide 0b6e... approve --bank-file bank.yaml
  bbctl requests decide 0b6e... approve --bank-name "Mizuho" --branch "Shibuya" \
    --account-type ordinary --account-number 1234567 --holder "YAMADA TARO"
  bbctl requests decide 0b6e... reject`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(domain.DecisionApprove), string(domain.DecisionReject)},
		RunE: func(cmd *cobra.Command, args []string) error {
			decision := domain.Decision(strings.ToLower(args[1]))
			var info *domain.BankInfo
			switch decision {
			case domain.DecisionApprove:
				if bankFile != "" {
					if err := readDocument(bankFile, cmd.InOrStdin(), &bank); err != nil {
						return err
					}
				}
				info = &bank
			case domain.DecisionReject:
			default:
				return fmt.Errorf("decision must be approve or reject (got %q)", args[1])
			}

			r, err := newClient().RecordDecision(cmd.Context(), args[0], decision, info)
			if err != nil {
				return err
			}
			return printTransition(cmd, r)
		},
	}

	cmd.Flags().StringVar(&bankFile, "bank-file", "", "bank account YAML or JSON (- for stdin)")
	cmd.Flags().StringVar(&bank.BankName, "bank-name", "", "bank name")
	cmd.Flags().StringVar(&bank.BranchName, "branch", "", "branch name")
	cmd.Flags().StringVar(&bank.AccountType, "account-type", "", "account type (ordinary, checking)")
	cmd.Flags().StringVar(&bank.AccountNumber, "account-number", "", "account number")
	cmd.Flags().StringVar(&bank.AccountHolder, "holder", "", "account holder name")
	return cmd
}

func requestCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Complete the payout and register the devices as inventory",
		Long: "Mark an approved request paid and create the customer, buyback and\n" +
			"inventory records. If the request cannot be removed afterwards the\n" +
			"output says so; run 'bbctl requests retire' to finish.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient().CompletePayout(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), c)
			}
			return printCompletion(cmd.OutOrStdout(), c)
		},
	}
}

func requestRetireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retire <id>",
		Short: "Remove a paid request left behind by a completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().RetryRetirement(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Request %s retired.\n", args[0])
			return nil
		},
	}
}

func requestReturnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete-return <id>",
		Short: "Record that the devices were shipped back to the customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newClient().CompleteReturn(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printTransition(cmd, r)
		},
	}
}

func printRequest(cmd *cobra.Command, r *domain.MailBuybackRequest) error {
	if jsonOutput() {
		return outputJSON(cmd.OutOrStdout(), r)
	}
	return printRequestDetail(cmd.OutOrStdout(), r)
}

func printTransition(cmd *cobra.Command, r *domain.MailBuybackRequest) error {
	if jsonOutput() {
		return outputJSON(cmd.OutOrStdout(), r)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Request %s is now %s.\n", r.RequestNumber, r.Status)
	return nil
}
