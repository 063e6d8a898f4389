package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// SheetName is the single worksheet of the workbook export.
const SheetName = "estaciones"

var workbookHeader = []interface{}{"ICAO", "Estación", "viento_promedio", "lat", "lon", "Altura_m", "Provincia"}

// WriteWorkbook stores stations as an xlsx workbook with the data.json columns.
func WriteWorkbook(path string, stations []Station) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &workbookHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, s := range stations {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		var altitude interface{}
		if s.Altitude != nil {
			altitude = *s.Altitude
		}
		row := []interface{}{s.ICAO, s.Station, s.Mean, s.Lat, s.Lon, altitude, s.Province}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
