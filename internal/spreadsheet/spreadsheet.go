// Package spreadsheet moves the catalog in and out of xlsx workbooks.
package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"hannu-storefront/internal/domain"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Productos"

var (
	ErrNoSheets   = errors.New("workbook has no sheets")
	ErrNoRows     = errors.New("sheet has no product rows")
	ErrNoNameCell = errors.New("header has no name column")
)

// columns in export order; the header row uses the draft's json names
var columns = []string{
	"id", "name", "description", "category", "retail_price", "wholesale_price",
	"colors", "sizes", "images", "composition", "specifications", "care",
}

// Export writes products to w as a single-sheet workbook. List fields are
// joined with ", " so the file can be re-imported as drafts.
func Export(w io.Writer, products []domain.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, p := range products {
		row := []interface{}{
			p.ID, p.Name, p.Description, string(p.Category), p.RetailPrice, p.WholesalePrice,
			strings.Join(p.Colors, ", "), strings.Join(p.Sizes, ", "), strings.Join(p.DisplayImages(), ", "),
			p.Composition, p.Specifications, p.Care,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	_, err := f.WriteTo(w)
	return err
}

// Row is one parsed spreadsheet line. Line is the 1-based sheet row.
type Row struct {
	Line  int
	ID    string
	Draft domain.ProductDraft
}

// ParseDrafts reads the first sheet of an xlsx workbook. The first row is a
// header naming the columns, either by their json names or Spanish labels.
// Blank rows are skipped. Values are left for admin validation.
func ParseDrafts(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, ErrNoRows
	}

	colMap := mapColumns(rows[0])
	if _, ok := colMap["name"]; !ok {
		return nil, ErrNoNameCell
	}

	var out []Row
	for i := 1; i < len(rows); i++ {
		if isEmptyRow(rows[i]) {
			continue
		}
		get := func(field string) string {
			idx, ok := colMap[field]
			if !ok || idx >= len(rows[i]) {
				return ""
			}
			return strings.TrimSpace(rows[i][idx])
		}
		out = append(out, Row{
			Line: i + 1,
			ID:   get("id"),
			Draft: domain.ProductDraft{
				Name:           get("name"),
				Description:    get("description"),
				Composition:    get("composition"),
				Specifications: get("specifications"),
				Care:           get("care"),
				RetailPrice:    normalizePrice(get("retail_price")),
				WholesalePrice: normalizePrice(get("wholesale_price")),
				Category:       get("category"),
				Images:         get("images"),
				Colors:         get("colors"),
				Sizes:          get("sizes"),
			},
		})
	}

	if len(out) == 0 {
		return nil, ErrNoRows
	}
	return out, nil
}

var headerAliases = map[string]string{
	"nombre":         "name",
	"descripcion":    "description",
	"descripción":    "description",
	"categoria":      "category",
	"categoría":      "category",
	"precio":         "retail_price",
	"precio_detal":   "retail_price",
	"precio_mayor":   "wholesale_price",
	"colores":        "colors",
	"tallas":         "sizes",
	"imagenes":       "images",
	"imágenes":       "images",
	"composicion":    "composition",
	"composición":    "composition",
	"especificacion": "specifications",
	"cuidados":       "care",
}

func mapColumns(header []string) map[string]int {
	m := make(map[string]int)
	for i, raw := range header {
		name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_")
		if alias, ok := headerAliases[name]; ok {
			name = alias
		}
		if name == "" {
			continue
		}
		if _, dup := m[name]; !dup {
			m[name] = i
		}
	}
	return m
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// normalizePrice strips a currency sign, thousands separators and a zero
// decimal part ("189.000", "$ 189,000.00"). Anything it cannot read as a
// whole number is returned unchanged for validation to reject.
func normalizePrice(raw string) string {
	s := strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(raw), "$"), " ", "")
	if i := strings.LastIndexAny(s, ".,"); i >= 0 && len(s)-i <= 3 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}

	groups := strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == ',' })
	for _, g := range groups[min(1, len(groups)):] {
		if len(g) != 3 {
			return raw
		}
	}
	joined := strings.Join(groups, "")
	if _, err := strconv.Atoi(joined); err != nil {
		return raw
	}
	return joined
}
