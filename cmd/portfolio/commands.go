package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	portfoliohandler "portfolio_tracker/internal/feature/portfolio/transport/handler"
	"portfolio_tracker/internal/feature/portfolio/usecase"
	quoteentity "portfolio_tracker/internal/feature/quotes/domain/entity"
	quotehandler "portfolio_tracker/internal/feature/quotes/transport/handler"
	"portfolio_tracker/internal/shared/money"
)

const dateLayout = "2006-01-02"

// deps は各コマンドが使うユースケースです。
type deps struct {
	quotes     quotehandler.QuoteUsecase
	portfolios portfoliohandler.PortfolioUsecase
}

// builder はコマンド実行直前に依存関係を組み立てます。戻り値の関数で解放します。
type builder func(ctx context.Context) (*deps, func(), error)

func newRootCmd(build builder) *cobra.Command {
	var (
		d       *deps
		release func()
	)

	root := &cobra.Command{
		Use:           "portfolio",
		Short:         "Track stock portfolios from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			d, release, err = build(cmd.Context())
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if release != nil {
				release()
			}
		},
	}
	get := func() *deps { return d }

	root.AddCommand(
		listCmd(get),
		createCmd(get),
		showCmd(get),
		deleteCmd(get),
		addCmd(get),
		updateCmd(get),
		removeCmd(get),
		valueCmd(get),
		summaryCmd(get),
		performanceCmd(get),
		sectorsCmd(get),
		infoCmd(get),
		quoteCmd(get),
		historyCmd(get),
		compareCmd(get),
		clearCacheCmd(get),
	)
	return root
}

func listCmd(d func() *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List portfolios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ps, err := d().portfolios.ListPortfolios(cmd.Context())
			if err != nil {
				return err
			}
			t := newTable("NAME", "HOLDINGS", "CREATED")
			for _, p := range ps {
				t.addRow(p.Name, strconv.Itoa(len(p.Holdings)), p.CreatedAt.Format(time.RFC3339))
			}
			return t.render(cmd.OutOrStdout())
		},
	}
}

func createCmd(d func() *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create a portfolio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := d().portfolios.CreatePortfolio(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created portfolio %q\n", p.Name)
			return nil
		},
	}
}

func showCmd(d func() *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show the holdings of a portfolio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := d().portfolios.GetPortfolio(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			t := newTable("SYMBOL", "SHARES", "PRICE", "DATE", "COST")
			for _, h := range p.Holdings {
				t.addRow(h.Symbol, h.Shares.String(), h.PurchasePrice.String(),
					h.PurchaseDate.Format(dateLayout), money.Format(h.CostBasis(), money.DefaultCurrency))
			}
			return t.render(cmd.OutOrStdout())
		},
	}
}

func deleteCmd(d func() *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a portfolio and all of its holdings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := d().portfolios.DeletePortfolio(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted portfolio %q\n", args[0])
			return nil
		},
	}
}

func addCmd(d func() *deps) *cobra.Command {
	var price, date string
	cmd := &cobra.Command{
		Use:   "add NAME SYMBOL SHARES",
		Short: "Add a holding; the purchase price defaults to the current quote",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			shares, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("shares: %w", err)
			}
			in := usecase.HoldingInput{Symbol: args[1], Shares: shares}
			if price != "" {
				p, err := decimal.NewFromString(price)
				if err != nil {
					return fmt.Errorf("--price: %w", err)
				}
				in.PurchasePrice = &p
			}
			if in.PurchaseDate, err = parseDate(date); err != nil {
				return err
			}

			h, err := d().portfolios.AddHolding(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s shares at %s\n", h.Symbol, h.Shares, h.PurchasePrice)
			return nil
		},
	}
	cmd.Flags().StringVar(&price, "price", "", "purchase price per share")
	cmd.Flags().StringVar(&date, "date", "", "purchase date (YYYY-MM-DD), defaults to today")
	return cmd
}

func updateCmd(d func() *deps) *cobra.Command {
	var shares, price, date string
	cmd := &cobra.Command{
		Use:   "update NAME SYMBOL",
		Short: "Replace the shares and purchase price of a holding",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := decimal.NewFromString(shares)
			if err != nil {
				return fmt.Errorf("--shares: %w", err)
			}
			p, err := decimal.NewFromString(price)
			if err != nil {
				return fmt.Errorf("--price: %w", err)
			}
			in := usecase.UpdateInput{Shares: s, PurchasePrice: p}
			if in.PurchaseDate, err = parseDate(date); err != nil {
				return err
			}

			h, err := d().portfolios.UpdateHolding(cmd.Context(), args[0], args[1], in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s shares at %s\n", h.Symbol, h.Shares, h.PurchasePrice)
			return nil
		},
	}
	cmd.Flags().StringVar(&shares, "shares", "", "number of shares")
	cmd.Flags().StringVar(&price, "price", "", "purchase price per share")
	cmd.Flags().StringVar(&date, "date", "", "purchase date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("shares")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func removeCmd(d func() *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "remove NAME SYMBOL",
		Short: "Remove a holding",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := d().portfolios.RemoveHolding(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s from %q\n", quoteentity.NormalizeSymbol(args[1]), args[0])
			return nil
		},
	}
}

func valueCmd(d func() *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "value NAME",
		Short: "Value a portfolio at current prices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := d().portfolios.Valuate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			t := newTable("SYMBOL", "SHARES", "PRICE", "VALUE", "GAIN", "WEIGHT")
			for _, hv := range v.Holdings {
				if !hv.Available {
					t.addRow(hv.Holding.Symbol, hv.Holding.Shares.String(), "unavailable", "-", "-", "-")
					continue
				}
				price := money.Format(hv.CurrentPrice, hv.Currency)
				if hv.Stale {
					price += " (stale)"
				}
				t.addRow(hv.Holding.Symbol, hv.Holding.Shares.String(), price, money.Format(hv.Value, hv.Currency),
					money.Percent(hv.GainPct), money.Percent(hv.Weight))
			}
			t.addRow("TOTAL", "", "", money.Format(v.TotalValue, money.DefaultCurrency),
				fmt.Sprintf("%s (%s)", money.Format(v.TotalGain, money.DefaultCurrency), money.Percent(v.TotalGainPct)), "")
			return t.render(cmd.OutOrStdout())
		},
	}
}

func summaryCmd(d func() *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "summary NAME",
		Short: "Show a portfolio summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := d().portfolios.Summary(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d holdings, cost %s\n", s.Name, s.HoldingCount, money.Format(s.TotalCost, money.DefaultCurrency))
			if len(s.Symbols) > 0 {
				fmt.Fprintf(out, "symbols: %s\n", strings.Join(s.Symbols, ", "))
			}
			return nil
		},
	}
}

func performanceCmd(d func() *deps) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "performance NAME",
		Short: "Show daily portfolio value over a period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := d().portfolios.Performance(cmd.Context(), args[0], period)
			if err != nil {
				return err
			}
			if len(points) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no price history available")
				return nil
			}
			t := newTable("DATE", "VALUE")
			for _, p := range points {
				t.addRow(p.Date.Format(dateLayout), money.Format(p.Value, money.DefaultCurrency))
			}
			return t.render(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&period, "period", "1y", "1mo, 3mo, 6mo, 1y, 2y or 5y")
	return cmd
}

func sectorsCmd(d func() *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "sectors NAME",
		Short: "Show how many holdings fall into each sector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := d().portfolios.SectorAllocation(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(a.Sectors) == 0 {
				fmt.Fprintln(out, "no sector data available")
			} else {
				t := newTable("SECTOR", "HOLDINGS", "SHARE", "SYMBOLS")
				for _, s := range a.Sectors {
					t.addRow(s.Sector, strconv.Itoa(s.Count), money.Percent(s.Weight), strings.Join(s.Symbols, ", "))
				}
				if err := t.render(out); err != nil {
					return err
				}
			}
			if len(a.Unclassified) > 0 {
				fmt.Fprintf(out, "unclassified: %s\n", strings.Join(a.Unclassified, ", "))
			}
			return nil
		},
	}
}

func infoCmd(d func() *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "info SYMBOL",
		Short: "Show company profile and key statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := d().quotes.GetStockInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			t := newTable("FIELD", "VALUE")
			t.addRow("name", orNA(i.Name))
			t.addRow("sector", orNA(i.Sector))
			t.addRow("industry", orNA(i.Industry))
			t.addRow("market cap", decimalOrNA(i.MarketCap))
			t.addRow("p/e", decimalOrNA(i.PERatio))
			t.addRow("dividend yield", decimalOrNA(i.DividendYield))
			t.addRow("beta", decimalOrNA(i.Beta))
			t.addRow("52w high", decimalOrNA(i.High52w))
			t.addRow("52w low", decimalOrNA(i.Low52w))
			return t.render(cmd.OutOrStdout())
		},
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func decimalOrNA(v decimal.Decimal) string {
	if v.IsZero() {
		return "N/A"
	}
	return v.String()
}

func quoteCmd(d func() *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "quote SYMBOL...",
		Short: "Show current prices",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := newTable("SYMBOL", "PRICE", "UPDATED")
			for _, s := range args {
				q, err := d().quotes.GetQuote(cmd.Context(), s)
				if err != nil {
					t.addRow(quoteentity.NormalizeSymbol(s), "unavailable", "")
					continue
				}
				price := money.Format(q.Price, q.Currency)
				if q.Stale {
					price += " (stale)"
				}
				t.addRow(q.Symbol, price, q.UpdatedAt.Format(time.RFC3339))
			}
			return t.render(cmd.OutOrStdout())
		},
	}
}

func historyCmd(d func() *deps) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "history SYMBOL",
		Short: "Show daily closes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := d().quotes.GetHistory(cmd.Context(), args[0], period)
			if err != nil {
				return err
			}
			t := newTable("DATE", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME")
			for _, c := range h.Candles {
				t.addRow(c.Time.Format(dateLayout), c.Open.String(), c.High.String(), c.Low.String(),
					c.Close.String(), strconv.FormatInt(c.Volume, 10))
			}
			return t.render(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&period, "period", "1y", "1mo, 3mo, 6mo, 1y, 2y or 5y")
	return cmd
}

func compareCmd(d func() *deps) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "compare SYMBOL...",
		Short: "Compare symbols normalized to 100 at the start of the period",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := d().quotes.Compare(cmd.Context(), args, period)
			if err != nil {
				return err
			}
			t := newTable("SYMBOL", "FIRST", "LAST", "POINTS")
			for _, s := range series {
				if len(s.Points) == 0 {
					continue
				}
				t.addRow(s.Symbol, s.Points[0].Value.String(), s.Points[len(s.Points)-1].Value.String(), strconv.Itoa(len(s.Points)))
			}
			return t.render(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&period, "period", "1y", "1mo, 3mo, 6mo, 1y, 2y or 5y")
	return cmd
}

func clearCacheCmd(d func() *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Drop all cached quotes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := d().quotes.ClearCache(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "quote cache cleared")
			return nil
		},
	}
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
	}
	return &t, nil
}
