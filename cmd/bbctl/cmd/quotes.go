package cmd

import (
	"context"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/mailin-buyback/internal/api/client"
	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

func quoteCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quote",
		Short: "Price a device without creating a request",
	}

	root.AddCommand(
		quoteKindCmd("buyback", "Quote the purchase price offered to a customer",
			(*apiclient.Client).QuoteBuyback),
		quoteKindCmd("resale", "Quote the shop's resale price",
			(*apiclient.Client).QuoteResale),
	)
	return root
}

type quoteFunc func(*apiclient.Client, context.Context, apiclient.QuoteRequest) (*apiclient.Quote, error)

func quoteKindCmd(use, short string, fn quoteFunc) *cobra.Command {
	var (
		q         apiclient.QuoteRequest
		rank      string
		nw        string
		stain     string
		basePrice int
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Example: "  bbctl quote " + use + ` --model "iPhone 13" --storage 128GB --rank 良品 --battery 85
  bbctl quote ` + use + ` --model "iPhone 13" --storage 128GB --rank 美品 --nw triangle --stain minor`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q.Rank = domain.Rank(rank)
			q.Condition.NWStatus = domain.NWStatus(nw)
			q.Condition.CameraStain = domain.CameraStain(stain)
			if cmd.Flags().Changed("base-price") {
				q.BasePrice = &basePrice
			}

			quote, err := fn(newClient(), cmd.Context(), q)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), quote)
			}
			return printQuote(cmd.OutOrStdout(), quote)
		},
	}

	f := cmd.Flags()
	f.StringVar(&q.Model, "model", "", "model name as listed in the price table")
	f.StringVar(&q.Storage, "storage", "", "storage capacity, e.g. 128GB")
	f.StringVar(&rank, "rank", string(domain.RankGood), "cosmetic grade (超美品, 美品, 良品, 並品, リペア品)")
	f.IntVar(&q.Condition.BatteryPercent, "battery", 100, "maximum battery capacity percent")
	f.BoolVar(&q.Condition.IsServiceState, "service-state", false, "battery reports service state")
	f.StringVar(&nw, "nw", string(domain.NWOK), "network restriction status (ok, triangle, cross)")
	f.StringVar(&stain, "stain", string(domain.StainNone), "camera stain (none, minor, major)")
	f.BoolVar(&q.Condition.CameraBroken, "camera-broken", false, "camera is broken")
	f.BoolVar(&q.Condition.RepairHistory, "repair-history", false, "device has been repaired")
	f.IntVar(&basePrice, "base-price", 0, "override the price table base price")
	if use == "buyback" {
		f.IntVar(&q.GuaranteePrice, "guarantee", 0, "guaranteed minimum price")
	}
	cobra.CheckErr(cmd.MarkFlagRequired("model"))
	cobra.CheckErr(cmd.MarkFlagRequired("storage"))

	return cmd
}
