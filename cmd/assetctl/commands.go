package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/simaogato/assetflow-backend/internal/adapter/chart"
	"github.com/simaogato/assetflow-backend/internal/adapter/legacycsv"
	"github.com/simaogato/assetflow-backend/internal/app"
	"github.com/simaogato/assetflow-backend/internal/domain"
	"github.com/simaogato/assetflow-backend/internal/usecase/timeseries"
)

// run opens the app, runs fn and maps its error to an exit status
func run(ctx context.Context, fn func(*app.App) error) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := fn(a); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func parseType(raw string) (domain.AssetType, error) {
	if raw == "" {
		return "", nil
	}
	return domain.ParseAssetType(raw)
}

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create or upgrade the database schema" }
func (*migrateCmd) Usage() string {
	return `assetctl migrate

  Applies the schema and seeds the default settings.
`
}
func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app.App) error {
		fmt.Printf("database migrated (%s)\n", a.Config.Storage.Driver)
		return nil
	})
}

type updatePricesCmd struct{}

func (*updatePricesCmd) Name() string     { return "update-prices" }
func (*updatePricesCmd) Synopsis() string { return "fetch market prices for tracked tickers" }
func (*updatePricesCmd) Usage() string {
	return `assetctl update-prices [ticker...]

  Fetches bars for every ticker held (or only the given ones) and merges
  them into the history of each holding.
`
}
func (*updatePricesCmd) SetFlags(*flag.FlagSet) {}

func (*updatePricesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app.App) error {
		report, err := a.Ingestion.UpdateAll(ctx, f.Args())
		if err != nil {
			return err
		}
		fmt.Printf("%d tickers, %d assets updated, %d rewound\n", report.Tickers, report.Updated, len(report.Rewound))
		for _, fail := range report.Failures {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", fail.Ticker, fail.Err)
		}
		return nil
	})
}

type reconcileCmd struct {
	account string
	total   string
}

func (*reconcileCmd) Name() string     { return "reconcile" }
func (*reconcileCmd) Synopsis() string { return "align an account with its statement total" }
func (*reconcileCmd) Usage() string {
	return `assetctl reconcile -account <name> -total <amount>

  Stores the asserted total and rewrites the account's balance adjustment
  entry so that holdings plus adjustment equal the total.
`
}

func (c *reconcileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "brokerage account name")
	f.StringVar(&c.total, "total", "", "total shown on the statement")
}

func (c *reconcileCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.total == "" {
		fmt.Fprintln(os.Stderr, "-account and -total are required")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(a *app.App) error {
		res, err := a.Reconcile.Reconcile(ctx, c.account, domain.ParseNumeric(c.total))
		if err != nil {
			return err
		}
		fmt.Printf("%s: holdings %s, adjustment %s\n", res.Account,
			domain.FormatMoney(res.Holdings, a.Config.MarketData.HomeCurrency), domain.FormatMoney(res.Adjustment, a.Config.MarketData.HomeCurrency))
		return nil
	})
}

type correctCmd struct {
	asset    string
	date     string
	price    string
	quantity string
}

func (*correctCmd) Name() string     { return "correct" }
func (*correctCmd) Synopsis() string { return "record a quantity change and propagate it forward" }
func (*correctCmd) Usage() string {
	return `assetctl correct -asset <id> -date <YYYY-MM-DD> -price <price> -quantity <qty>

  Overwrites the quantity from the given date on and recomputes values.
`
}

func (c *correctCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.asset, "asset", "", "asset id")
	f.StringVar(&c.date, "date", "", "effective date")
	f.StringVar(&c.price, "price", "", "unit price on that date")
	f.StringVar(&c.quantity, "quantity", "", "new quantity")
}

func (c *correctCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	date, ok := domain.ParseDate(c.date)
	if c.asset == "" || !ok || c.quantity == "" {
		fmt.Fprintln(os.Stderr, "-asset, a valid -date and -quantity are required")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(a *app.App) error {
		res, err := a.Correction.CorrectQuantity(ctx, c.asset, date, domain.ParseNumeric(c.price), domain.ParseNumeric(c.quantity))
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d entries changed, value %s, quantity %s\n",
			res.AssetID, res.Changed, domain.FormatMoney(res.CurrentValue, a.Config.MarketData.HomeCurrency), res.Quantity)
		return nil
	})
}

type seriesCmd struct {
	assetType string
	dimension string
	last      int
}

func (*seriesCmd) Name() string     { return "series" }
func (*seriesCmd) Synopsis() string { return "print the reconstructed daily series" }
func (*seriesCmd) Usage() string {
	return `assetctl series [-type <TYPE>] [-dim type|account|name|asset|total] [-last N]
`
}

func (c *seriesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.assetType, "type", "", "restrict to one asset type")
	f.StringVar(&c.dimension, "dim", "type", "grouping dimension")
	f.IntVar(&c.last, "last", 10, "number of trailing days to print (0 for all)")
}

func (c *seriesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	t, err := parseType(c.assetType)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	dim, err := timeseries.ParseDimension(c.dimension)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	return run(ctx, func(a *app.App) error {
		points, err := a.Portfolio.GetSeries(ctx, t, dim)
		if err != nil {
			return err
		}

		var days []string
		for _, p := range points {
			if len(days) == 0 || days[len(days)-1] != p.Date {
				days = append(days, p.Date)
			}
		}
		if c.last > 0 && len(days) > c.last {
			days = days[len(days)-c.last:]
		}
		from := ""
		if len(days) > 0 {
			from = days[0]
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "date\tkey\tvalue\t")
		for _, p := range points {
			if p.Date < from {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t\n", p.Date, p.Key, domain.FormatMoney(p.Value, a.Config.MarketData.HomeCurrency))
		}
		return w.Flush()
	})
}

type chartCmd struct {
	assetType string
	dimension string
	out       string
	title     string
	width     int
	height    int
}

func (*chartCmd) Name() string     { return "chart" }
func (*chartCmd) Synopsis() string { return "render the series as a stacked area PNG" }
func (*chartCmd) Usage() string {
	return `assetctl chart -out <file.png> [-type <TYPE>] [-dim type|account|name|asset|total]
`
}

func (c *chartCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.assetType, "type", "", "restrict to one asset type")
	f.StringVar(&c.dimension, "dim", "type", "grouping dimension")
	f.StringVar(&c.out, "out", "assets.png", "output file")
	f.StringVar(&c.title, "title", "", "chart title")
	f.IntVar(&c.width, "width", 0, "image width in pixels")
	f.IntVar(&c.height, "height", 0, "image height in pixels")
}

func (c *chartCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	t, err := parseType(c.assetType)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	dim, err := timeseries.ParseDimension(c.dimension)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	return run(ctx, func(a *app.App) error {
		points, err := a.Portfolio.GetSeries(ctx, t, dim)
		if err != nil {
			return err
		}
		png, err := chart.RenderStacked(points, chart.Options{
			Title:    c.title,
			Width:    c.width,
			Height:   c.height,
			Currency: a.Config.MarketData.HomeCurrency,
		})
		if err != nil {
			return err
		}
		if err := os.WriteFile(c.out, png, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", c.out, err)
		}
		fmt.Printf("chart written to %s\n", c.out)
		return nil
	})
}

type importCmd struct {
	dryRun bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import the legacy spreadsheet export" }
func (*importCmd) Usage() string {
	return `assetctl import [-dry-run] <export.csv>

  Reads the CSV export of the asset sheet and upserts every row. Assets
  whose id already exists are overwritten, history included.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.dryRun, "dry-run", false, "parse and report without writing")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "exactly one CSV file is required")
		return subcommands.ExitUsageError
	}

	file, err := os.Open(f.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer file.Close()

	sheet, err := legacycsv.Read(file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	for _, w := range sheet.Warnings {
		fmt.Fprintln(os.Stderr, w)
	}
	if c.dryRun {
		fmt.Printf("%d assets, %d settings parsed\n", len(sheet.Assets), len(sheet.Settings))
		return subcommands.ExitSuccess
	}

	return run(ctx, func(a *app.App) error {
		res, err := a.Importer.Import(ctx, sheet)
		if err != nil {
			return err
		}
		fmt.Printf("%d created, %d updated, %d settings\n", res.Created, res.Updated, res.Settings)
		return nil
	})
}

type checkCmd struct{}

func (*checkCmd) Name() string     { return "check" }
func (*checkCmd) Synopsis() string { return "report data integrity problems" }
func (*checkCmd) Usage() string {
	return `assetctl check

  Lists orphaned history rows and accounts with more than one balance
  adjustment entry. Exits non-zero when anything is found.
`
}
func (*checkCmd) SetFlags(*flag.FlagSet) {}

func (*checkCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	issues, err := a.Portfolio.Check(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if len(issues) == 0 {
		fmt.Println("no issues found")
		return subcommands.ExitSuccess
	}
	for _, issue := range issues {
		fmt.Println(issue.String())
	}
	return subcommands.ExitFailure
}
