package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/mailin-buyback/internal/config"
	"github.com/donaldgifford/mailin-buyback/internal/store"
	"github.com/donaldgifford/mailin-buyback/pkg/pricing"
)

var importPricesFile string

var importPricesCmd = &cobra.Command{
	Use:   "import-prices",
	Short: "Replace the database price tables from a YAML file",
	Long: "Validates a price table file and replaces the base price, buyback\n" +
		"deduction and resale deduction tables in one transaction.",
	RunE: runImportPrices,
}

func init() {
	importPricesCmd.Flags().StringVarP(&importPricesFile, "file", "f", "",
		"price table YAML (default pricing.tables_file from config)")
}

// priceImporter is implemented by stores that hold editable price tables.
type priceImporter interface {
	ReplacePriceTables(ctx context.Context, set *pricing.TableSet) error
}

func runImportPrices(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Store.Type != config.StorePostgres {
		return fmt.Errorf("import-prices: %w", errNeedsPostgres)
	}
	log := newLogger(cfg)

	path := importPricesFile
	if path == "" {
		path = cfg.Pricing.TablesFile
	}
	if path == "" {
		return fmt.Errorf("no price table file: pass --file or set pricing.tables_file")
	}

	set, err := pricing.LoadTableSet(path)
	if err != nil {
		return err
	}
	if _, err := set.Build(); err != nil {
		return fmt.Errorf("validating %s: %w", path, err)
	}

	pg, err := store.NewPostgresStore(cmd.Context(), cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pg.Close()

	if err := importPrices(cmd.Context(), pg, set); err != nil {
		return err
	}

	log.Info("price tables imported",
		"file", path,
		"base_prices", len(set.BasePrices),
		"buyback_deductions", len(set.BuybackDeductions),
		"resale_deductions", len(set.ResaleDeductions),
	)
	return nil
}

func importPrices(ctx context.Context, dst priceImporter, set *pricing.TableSet) error {
	if err := dst.ReplacePriceTables(ctx, set); err != nil {
		return fmt.Errorf("replacing price tables: %w", err)
	}
	return nil
}
