package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	apperrors "stockdesk/internal/errors"
	"stockdesk/internal/models"
	"stockdesk/internal/security"
	"stockdesk/internal/store"
	"stockdesk/pkg/utils"
)

// addPortfolioCommands adds portfolio management commands.
func addPortfolioCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "portfolio",
		Aliases: []string{"pf"},
		Short:   "Manage portfolio holdings",
	}

	cmd.AddCommand(newPortfolioAddCmd(app))
	cmd.AddCommand(newPortfolioListCmd(app))
	cmd.AddCommand(newPortfolioUpdateCmd(app))
	cmd.AddCommand(newPortfolioRemoveCmd(app))
	cmd.AddCommand(newPortfolioExportCmd(app))
	cmd.AddCommand(newPortfolioImportCmd(app))

	rootCmd.AddCommand(cmd)
}

func parseAssetType(raw string) (models.AssetType, error) {
	t := models.AssetType(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case models.AssetStock, models.AssetETF, models.AssetCrypto, models.AssetBond, models.AssetCash:
		return t, nil
	case "":
		return models.AssetStock, nil
	}
	return "", apperrors.NewValidationError("type", raw, "must be stock, etf, crypto, bond or cash")
}

// validateAsset checks an asset before it is written.
func validateAsset(a *models.Asset) error {
	symbol, err := security.ValidateSymbol(a.Symbol)
	if err != nil {
		return err
	}
	a.Symbol = symbol
	if a.Type, err = parseAssetType(string(a.Type)); err != nil {
		return err
	}
	if !utils.IsFinite(a.Quantity) || a.Quantity <= 0 {
		return apperrors.NewValidationError("quantity", a.Quantity, "must be greater than zero")
	}
	if !utils.IsFinite(a.AveragePrice) || a.AveragePrice < 0 {
		return apperrors.NewValidationError("average_price", a.AveragePrice, "must not be negative")
	}
	a.Name = security.SanitizeText(a.Name)
	a.Notes = security.SanitizeText(a.Notes)
	if err := security.ValidateText("name", a.Name, 100); err != nil {
		return err
	}
	return security.ValidateText("notes", a.Notes, security.MaxTextLength)
}

func newPortfolioAddCmd(app *App) *cobra.Command {
	var assetType, name, notes string

	cmd := &cobra.Command{
		Use:     "add <symbol> <quantity> <average-price>",
		Short:   "Add a holding",
		Example: `  stockdesk portfolio add AAPL 10 182.50 --notes "long term"`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			qty, err := security.ParsePositive("quantity", args[1])
			if err != nil {
				return err
			}
			price, err := security.ParseNumber("average_price", args[2])
			if err != nil {
				return err
			}

			asset := models.Asset{
				UserID:       app.Config.User,
				Symbol:       args[0],
				Name:         name,
				Type:         models.AssetType(assetType),
				Quantity:     qty,
				AveragePrice: price,
				Notes:        notes,
			}
			if err := validateAsset(&asset); err != nil {
				return err
			}

			s, err := app.Store()
			if err != nil {
				return err
			}
			if err := s.CreateAsset(cmd.Context(), &asset); err != nil {
				return err
			}
			logger := app.userLogger()
			logger.Info().Str("asset_id", asset.ID).Str("symbol", asset.Symbol).Msg("Asset added")

			if output.IsJSON() {
				return output.JSON(asset)
			}
			output.Success("✓ Added %s %s @ %s (id %s)", FormatQuantity(asset.Quantity), asset.Symbol,
				FormatMoney(asset.AveragePrice, app.Config.UI.Currency), asset.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&assetType, "type", "stock", "stock, etf, crypto, bond or cash")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	return cmd
}

// holdingView is a holding valued at the latest quote.
type holdingView struct {
	models.Asset
	CostBasis   float64 `json:"cost_basis"`
	Price       string  `json:"price,omitempty"`
	MarketValue string  `json:"market_value,omitempty"`
	PnL         string  `json:"pnl,omitempty"`
	Source      string  `json:"source,omitempty"`

	pnl float64
}

func newPortfolioListCmd(app *App) *cobra.Command {
	var assetType string
	var live bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List holdings",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			filter := store.AssetFilter{}
			if assetType != "" {
				t, err := parseAssetType(assetType)
				if err != nil {
					return err
				}
				filter.Type = t
			}

			s, err := app.Store()
			if err != nil {
				return err
			}
			assets, err := s.ListAssets(cmd.Context(), app.Config.User, filter)
			if err != nil {
				return err
			}

			cur := app.Config.UI.Currency
			holdings := make([]holdingView, len(assets))
			var totalCost, totalValue float64
			for i, a := range assets {
				h := holdingView{Asset: a, CostBasis: a.CostBasis()}
				totalCost += h.CostBasis
				if live && a.Type != models.AssetCash {
					q, err := app.Feed().Quote(cmd.Context(), a.Symbol)
					if err == nil && utils.IsFinite(q.CurrentPrice) {
						value := q.CurrentPrice * a.Quantity
						h.pnl = value - h.CostBasis
						h.Price = utils.FormatPrice(q.CurrentPrice)
						h.MarketValue = FormatMoney(value, cur)
						h.PnL = FormatPnL(h.pnl, cur)
						h.Source = q.Source
						totalValue += value
					} else {
						totalValue += h.CostBasis
					}
				} else {
					totalValue += h.CostBasis
				}
				holdings[i] = h
			}

			if output.IsJSON() {
				return output.JSON(holdings)
			}
			if len(holdings) == 0 {
				output.Dim("No holdings. Add one with 'stockdesk portfolio add'.")
				return nil
			}

			headers := []string{"ID", "SYMBOL", "TYPE", "QTY", "AVG", "COST"}
			if live {
				headers = append(headers, "PRICE", "VALUE", "P&L")
			}
			table := NewTable(output, headers...)
			for _, h := range holdings {
				row := []string{h.ID[:min(8, len(h.ID))], h.Symbol, string(h.Type), FormatQuantity(h.Quantity),
					utils.FormatPrice(h.AveragePrice), FormatMoney(h.CostBasis, cur)}
				if live {
					row = append(row, orDash(h.Price), orDash(h.MarketValue), output.Signed(h.pnl, orDash(h.PnL)))
				}
				table.AddRow(row...)
			}
			table.Render()

			output.Println()
			output.Printf("Total cost: %s\n", FormatMoney(totalCost, cur))
			if live {
				pnl := totalValue - totalCost
				output.Printf("Market value: %s (%s)\n", FormatMoney(totalValue, cur), output.Signed(pnl, FormatPnL(pnl, cur)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&assetType, "type", "", "filter by asset type")
	cmd.Flags().BoolVar(&live, "live", false, "value holdings at current quotes")
	return cmd
}

// findAsset resolves a full id or a unique id prefix.
func findAsset(cmd *cobra.Command, app *App, s store.DataStore, id string) (*models.Asset, error) {
	if a, err := s.GetAsset(cmd.Context(), app.Config.User, id); err == nil {
		return a, nil
	} else if !apperrors.Is(err, apperrors.ErrDataNotFound) {
		return nil, err
	}

	assets, err := s.ListAssets(cmd.Context(), app.Config.User, store.AssetFilter{})
	if err != nil {
		return nil, err
	}
	var match *models.Asset
	for i := range assets {
		if strings.HasPrefix(assets[i].ID, id) {
			if match != nil {
				return nil, apperrors.NewValidationError("id", id, "ambiguous id prefix")
			}
			match = &assets[i]
		}
	}
	if match == nil {
		return nil, apperrors.NewStoreError("assets", "get", id, apperrors.ErrDataNotFound)
	}
	return match, nil
}

func newPortfolioUpdateCmd(app *App) *cobra.Command {
	var quantity, price, name, notes string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a holding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.Store()
			if err != nil {
				return err
			}
			asset, err := findAsset(cmd, app, s, args[0])
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("quantity") {
				if asset.Quantity, err = security.ParsePositive("quantity", quantity); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("price") {
				if asset.AveragePrice, err = security.ParseNumber("average_price", price); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("name") {
				asset.Name = name
			}
			if cmd.Flags().Changed("notes") {
				asset.Notes = notes
			}
			if err := validateAsset(asset); err != nil {
				return err
			}
			if err := s.UpdateAsset(cmd.Context(), asset); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(asset)
			}
			output.Success("✓ Updated %s", asset.Symbol)
			return nil
		},
	}

	cmd.Flags().StringVar(&quantity, "quantity", "", "new quantity")
	cmd.Flags().StringVar(&price, "price", "", "new average price")
	cmd.Flags().StringVar(&name, "name", "", "new display name")
	cmd.Flags().StringVar(&notes, "notes", "", "new notes")
	return cmd
}

func newPortfolioRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a holding",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.Store()
			if err != nil {
				return err
			}
			asset, err := findAsset(cmd, app, s, args[0])
			if err != nil {
				return err
			}
			if err := s.DeleteAsset(cmd.Context(), app.Config.User, asset.ID); err != nil {
				return err
			}
			logger := app.userLogger()
			logger.Info().Str("asset_id", asset.ID).Msg("Asset removed")

			if output.IsJSON() {
				return output.JSON(map[string]string{"removed": asset.ID})
			}
			output.Success("✓ Removed %s (%s)", asset.Symbol, asset.ID)
			return nil
		},
	}
}

// assetRow is the CSV layout of a holding.
type assetRow struct {
	ID           string  `csv:"id"`
	Symbol       string  `csv:"symbol"`
	Name         string  `csv:"name"`
	Type         string  `csv:"type"`
	Quantity     float64 `csv:"quantity"`
	AveragePrice float64 `csv:"average_price"`
	Notes        string  `csv:"notes"`
}

func toAssetRow(a models.Asset) assetRow {
	return assetRow{
		ID:           a.ID,
		Symbol:       a.Symbol,
		Name:         a.Name,
		Type:         string(a.Type),
		Quantity:     a.Quantity,
		AveragePrice: a.AveragePrice,
		Notes:        a.Notes,
	}
}

func (r assetRow) asset() models.Asset {
	return models.Asset{
		Symbol:       r.Symbol,
		Name:         r.Name,
		Type:         models.AssetType(r.Type),
		Quantity:     r.Quantity,
		AveragePrice: r.AveragePrice,
		Notes:        r.Notes,
	}
}

func newPortfolioExportCmd(app *App) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export holdings as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Store()
			if err != nil {
				return err
			}
			assets, err := s.ListAssets(cmd.Context(), app.Config.User, store.AssetFilter{})
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if path != "" {
				f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
				if err != nil {
					return fmt.Errorf("failed to create export file: %w", err)
				}
				defer f.Close()
				w = f
			}
			rows := make([]assetRow, len(assets))
			for i, a := range assets {
				rows[i] = toAssetRow(a)
			}
			if err := gocsv.Marshal(&rows, w); err != nil {
				return fmt.Errorf("failed to write csv: %w", err)
			}
			if path != "" {
				NewOutput(cmd).Success("✓ Exported %d holdings to %s", len(assets), path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func newPortfolioImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import holdings from a CSV export",
		Long: `Import holdings from a CSV file with the columns written by
'portfolio export'. Ids and user ids in the file are ignored; every row
becomes a new holding of the current user.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open import file: %w", err)
			}
			defer f.Close()

			var rows []assetRow
			if err := gocsv.Unmarshal(f, &rows); err != nil {
				return apperrors.NewValidationError("file", args[0], fmt.Sprintf("invalid csv: %v", err))
			}
			assets := make([]models.Asset, len(rows))
			for i, r := range rows {
				assets[i] = r.asset()
				if err := validateAsset(&assets[i]); err != nil {
					return fmt.Errorf("row %d: %w", i+2, err)
				}
			}

			s, err := app.Store()
			if err != nil {
				return err
			}
			for i := range assets {
				assets[i].UserID = app.Config.User
				if err := s.CreateAsset(cmd.Context(), &assets[i]); err != nil {
					return err
				}
			}

			if output.IsJSON() {
				return output.JSON(map[string]int{"imported": len(assets)})
			}
			output.Success("✓ Imported %d holdings", len(assets))
			return nil
		},
	}
}
