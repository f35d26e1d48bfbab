package importer

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Column describes one column of an upload template
type Column struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"` // string, number, integer, boolean, list
	Example     string `json:"example"`
}

// Template is the column layout accepted by an entity's bulk upload
type Template struct {
	Entity  string   `json:"entity"`
	Version string   `json:"version"`
	Columns []Column `json:"columns"`
}

// Entity names, matching their route segment
const (
	EntityVendors        = "vendors"
	EntityProductTypes   = "product_types"
	EntityListingTypes   = "listing_types"
	EntityShopLocations  = "shop_locations"
	EntityCategories     = "categories"
	EntitySubcategories  = "subcategories"
	EntityOptionTypeSets = "option_type_sets"
	EntityProducts       = "products"
)

const templateVersion = "1.0"

func commonColumns(example string) []Column {
	return []Column{
		{Name: "name", Description: "Name, matched case-insensitively to update an existing record", Required: true, Type: "string", Example: example},
		{Name: "description", Description: "Free text description", Type: "string"},
		{Name: "active", Description: "true/false, yes/no or 1/0 (defaults to true)", Type: "boolean", Example: "true"},
	}
}

var entityColumns = map[string][]Column{
	EntityVendors: append(commonColumns("Acme Supplies"),
		Column{Name: "contact_email", Description: "Contact email address", Type: "string", Example: "sales@acme.test"},
		Column{Name: "phone", Description: "Contact phone number", Type: "string", Example: "+1 555 0100"},
	),
	EntityProductTypes: commonColumns("Apparel"),
	EntityListingTypes: commonColumns("Standard"),
	EntityShopLocations: append(commonColumns("Main Warehouse"),
		Column{Name: "address", Description: "Street address", Type: "string", Example: "1 Harbour Rd"},
		Column{Name: "city", Description: "City", Type: "string", Example: "Colombo"},
		Column{Name: "country", Description: "Country", Type: "string", Example: "Sri Lanka"},
	),
	EntityCategories: commonColumns("Clothing"),
	EntitySubcategories: append(commonColumns("T-Shirts"),
		Column{Name: "category", Description: "Name of an existing category in this shop", Required: true, Type: "string", Example: "Clothing"},
	),
	EntityOptionTypeSets: append(commonColumns("Size"),
		Column{Name: "values", Description: "Values separated by | or ,", Type: "list", Example: "S|M|L"},
	),
	EntityProducts: append(commonColumns("Blue Cotton T-Shirt"),
		Column{Name: "price", Description: "Price, 0 or more", Required: true, Type: "number", Example: "29.99"},
		Column{Name: "sku", Description: "Stock keeping unit", Type: "string", Example: "TSH-BLU-001"},
		Column{Name: "stock_quantity", Description: "Units in stock, 0 or more", Type: "integer", Example: "10"},
	),
}

// TemplateFor returns the upload template of an entity
func TemplateFor(entity string) (Template, bool) {
	cols, ok := entityColumns[entity]
	if !ok {
		return Template{}, false
	}
	return Template{Entity: entity, Version: templateVersion, Columns: append([]Column(nil), cols...)}, true
}

// Headers returns the column names in order
func (t Template) Headers() []string {
	headers := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		headers[i] = col.Name
	}
	return headers
}

// WriteCSV writes the header row only
func (t Template) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Headers()); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX writes a workbook with an empty data sheet, required columns
// highlighted, and an Instructions sheet describing each column.
func (t Template) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := Humanize(t.Entity)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	if err != nil {
		return err
	}
	requiredStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	if err != nil {
		return err
	}

	for i, col := range t.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		text, style := col.Name, headerStyle
		if col.Required {
			text, style = col.Name+" *", requiredStyle
		}
		f.SetCellValue(sheet, cell, text)
		f.SetCellStyle(sheet, cell, cell, style)

		name, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, name, name, 20)
	}

	const info = "Instructions"
	if _, err := f.NewSheet(info); err != nil {
		return err
	}
	f.SetCellValue(info, "A1", fmt.Sprintf("%s Import Instructions", Humanize(t.Entity)))
	f.SetCellValue(info, "A3", "Rows whose name matches an existing record are updated, all others are created.")
	f.SetCellValue(info, "A4", "Columns marked * are required. A failing row does not stop the rest of the file.")
	for i, h := range []string{"Column", "Description", "Required", "Type", "Example"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 6)
		f.SetCellValue(info, cell, h)
	}
	for i, col := range t.Columns {
		row := i + 7
		required := "Optional"
		if col.Required {
			required = "Required"
		}
		f.SetCellValue(info, fmt.Sprintf("A%d", row), col.Name)
		f.SetCellValue(info, fmt.Sprintf("B%d", row), col.Description)
		f.SetCellValue(info, fmt.Sprintf("C%d", row), required)
		f.SetCellValue(info, fmt.Sprintf("D%d", row), col.Type)
		f.SetCellValue(info, fmt.Sprintf("E%d", row), col.Example)
	}
	f.SetColWidth(info, "A", "A", 20)
	f.SetColWidth(info, "B", "B", 60)
	f.SetColWidth(info, "C", "D", 12)
	f.SetColWidth(info, "E", "E", 30)

	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)

	return f.Write(w)
}
