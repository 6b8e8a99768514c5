// Package legacycsv reads the CSV export of the legacy asset spreadsheet.
//
// The sheet carries optional CONFIG rows above a header row, then one asset
// per row. Type-specific attributes live in the generic detail1..detail5
// columns and the history is a JSON array in its own column.
package legacycsv

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/assetflow-backend/internal/domain"
)

// headerAliases maps every known spelling of a column to its canonical name.
// Lookups are case-insensitive.
var headerAliases = map[string]string{
	"id":               "id",
	"type":             "type",
	"name":             "name",
	"ticker":           "ticker",
	"acqdate":          "acquisitionDate",
	"acquisitiondate":  "acquisitionDate",
	"aquisitiondate":   "acquisitionDate",
	"취득일":              "acquisitionDate",
	"날짜":               "acquisitionDate",
	"acqprice":         "acquisitionPrice",
	"acquisitionprice": "acquisitionPrice",
	"aquisitionprice":  "acquisitionPrice",
	"취득가":              "acquisitionPrice",
	"disposaldate":     "disposalDate",
	"dispdate":         "disposalDate",
	"매각일":              "disposalDate",
	"disposalprice":    "disposalPrice",
	"dispprice":        "disposalPrice",
	"매각가":              "disposalPrice",
	"currentvalue":     "currentValue",
	"현재가":              "currentValue",
	"quantity":         "quantity",
	"수량":               "quantity",
	"detail1":          "detail1",
	"detail2":          "detail2",
	"detail3":          "detail3",
	"detail4":          "detail4",
	"detail5":          "detail5",
	"history":          "history",
}

// settingAliases maps CONFIG row keys to settings keys
var settingAliases = map[string]string{
	"CurrentAge":    domain.SettingCurrentAge,
	"RetirementAge": domain.SettingRetirementAge,
}

// headerFallbackRow is where the header sits when no row names both id and type
const headerFallbackRow = 7

const (
	balanceAdjustmentMarker = "BALANCE_ADJUSTMENT"
	adjustmentNameMarker    = "보정"
)

// Sheet is the parsed content of an export
type Sheet struct {
	Assets   []*domain.Asset
	Settings domain.Settings
	Warnings []string
}

// Read parses a CSV export. Malformed cells fall back to safe defaults and are
// reported as warnings; only an unreadable file or a missing header fails.
func Read(r io.Reader) (*Sheet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV file: %w", err)
	}

	headerIdx := findHeader(rows)
	if headerIdx < 0 {
		return nil, fmt.Errorf("%w: no header row with id and type columns", domain.ErrInvalidInput)
	}

	sheet := &Sheet{Settings: domain.Settings{}}
	for _, row := range rows[:headerIdx] {
		if len(row) >= 3 && strings.TrimSpace(row[0]) == "CONFIG" {
			key, ok := settingAliases[strings.TrimSpace(row[1])]
			if !ok {
				continue
			}
			sheet.Settings[key] = strconv.FormatInt(domain.ParseInt(row[2]), 10)
		}
	}

	columns := make(map[string]int)
	for i, h := range rows[headerIdx] {
		if canonical, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			columns[canonical] = i
		}
	}

	for n, row := range rows[headerIdx+1:] {
		if blank(row) {
			continue
		}
		cell := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		line := headerIdx + n + 2
		a, warnings := parseAsset(cell)
		for _, w := range warnings {
			sheet.Warnings = append(sheet.Warnings, fmt.Sprintf("line %d: %s", line, w))
		}
		sheet.Assets = append(sheet.Assets, a)
	}
	return sheet, nil
}

func findHeader(rows [][]string) int {
	for i, row := range rows {
		var hasID, hasType bool
		for _, c := range row {
			switch strings.ToLower(strings.TrimSpace(c)) {
			case "id":
				hasID = true
			case "type":
				hasType = true
			}
		}
		if hasID && hasType {
			return i
		}
	}
	if len(rows) > headerFallbackRow {
		return headerFallbackRow
	}
	return -1
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseAsset(cell func(string) string) (*domain.Asset, []string) {
	var warnings []string

	t, err := domain.ParseAssetType(cell("type"))
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("unknown type %q imported as %s", cell("type"), domain.AssetTypeOther))
		t = domain.AssetTypeOther
	}

	a := &domain.Asset{
		ID:               cell("id"),
		Name:             cell("name"),
		CurrentValue:     domain.ParseNumeric(cell("currentValue")),
		AcquisitionPrice: domain.ParseNumeric(cell("acquisitionPrice")),
		Quantity:         domain.ParseNumeric(cell("quantity")),
		DisposalPrice:    domain.ParseNumeric(cell("disposalPrice")),
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if d, ok := domain.ParseDate(cell("acquisitionDate")); ok {
		a.AcquisitionDate = d
	}
	if d, ok := domain.ParseDate(cell("disposalDate")); ok {
		a.DisposalDate = d
	}

	switch t {
	case domain.AssetTypeRealEstate:
		a.Details = &domain.RealEstateDetails{
			IsOwned:       strings.Contains(strings.ToUpper(cell("detail1")), "OWNED"),
			HasTenant:     strings.Contains(strings.ToUpper(cell("detail2")), "HAS_TENANT"),
			TenantDeposit: domain.ParseNumeric(cell("detail3")),
			Address:       cell("detail4"),
			LoanAmount:    domain.ParseNumeric(cell("detail5")),
		}
	case domain.AssetTypeStock:
		d5 := cell("detail5")
		adjustment := d5 == balanceAdjustmentMarker || strings.Contains(a.Name, adjustmentNameMarker)
		st := &domain.StockDetails{
			AccountName:       cell("detail1"),
			Currency:          strings.ToUpper(cell("detail2")),
			Ticker:            strings.ToUpper(cell("ticker")),
			BalanceAdjustment: adjustment,
		}
		if !adjustment {
			st.Payout = parsePayout(d5)
		}
		a.Details = st
	case domain.AssetTypePension:
		a.Details = &domain.PensionDetails{
			PensionType:           cell("detail1"),
			ExpectedStartYear:     int(domain.ParseInt(cell("detail2"))),
			ExpectedMonthlyPayout: domain.ParseNumeric(cell("detail3")),
			ExpectedEndYear:       int(domain.ParseInt(cell("detail4"))),
			AnnualGrowthRate:      domain.ParseNumeric(cell("detail5")),
		}
		if a.Details.(*domain.PensionDetails).PensionType == "" {
			a.Details.(*domain.PensionDetails).PensionType = "PERSONAL"
		}
	case domain.AssetTypeSavings:
		a.Details = &domain.SavingsDetails{Payout: parsePayout(cell("detail5"))}
	default:
		a.Details, _ = domain.NewDetails(t)
	}

	history, err := parseHistory(cell("history"))
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("history of %q ignored: %v", a.Name, err))
	}
	a.History = history

	domain.ApplyBootstrapValue(a)
	return a, warnings
}

// parsePayout reads the pension marker of STOCK and SAVINGS rows:
// "Y" or "PENSION_<startYear>_<monthlyPayout>"
func parsePayout(raw string) domain.PayoutPlan {
	switch {
	case raw == "Y":
		return domain.PayoutPlan{PensionLike: true}
	case strings.HasPrefix(raw, "PENSION"):
		plan := domain.PayoutPlan{PensionLike: true}
		parts := strings.Split(raw, "_")
		if len(parts) >= 3 {
			plan.StartYear = int(domain.ParseInt(parts[1]))
			plan.MonthlyPayout = domain.ParseNumeric(parts[2])
		}
		return plan
	default:
		return domain.PayoutPlan{}
	}
}

type rawEntry map[string]any

func parseHistory(raw string) (domain.History, error) {
	if !strings.HasPrefix(raw, "[") {
		return nil, nil
	}

	var entries []rawEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, err
	}

	var h domain.History
	var bad int
	for _, e := range entries {
		d, ok := domain.ParseDate(fmt.Sprint(e["date"]))
		if !ok {
			bad++
			continue
		}
		h = append(h, domain.HistoryEntry{
			Date:     d,
			Value:    field(e, "value"),
			Price:    field(e, "price"),
			Quantity: field(e, "quantity"),
		})
	}
	if bad > 0 {
		return h.Sorted(), errors.New(strconv.Itoa(bad) + " entries without a valid date")
	}
	return h.Sorted(), nil
}

func field(e rawEntry, key string) decimal.NullDecimal {
	v, ok := e[key]
	if !ok || v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(domain.ParseNumeric(v))
}
