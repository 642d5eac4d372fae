package businessflow

import (
	"bytes"
	"encoding/csv"
	"time"

	"github.com/torresguilherme/magic-qr-flows/models"
	"github.com/xuri/excelize/v2"
)

var scanExportHeader = []string{"occurred_at", "user_agent", "referer", "ip_hash"}

type scanExporter struct {
	extension   string
	contentType string
	write       func(scans []*models.QRScan) ([]byte, error)
}

var scanExporters = map[string]scanExporter{
	"csv": {
		extension:   "csv",
		contentType: "text/csv",
		write:       writeScansCSV,
	},
	"xlsx": {
		extension:   "xlsx",
		contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		write:       writeScansXLSX,
	},
}

func scanRecord(s *models.QRScan) []string {
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	return []string{
		s.CreatedAt.UTC().Format(time.RFC3339),
		deref(s.UserAgent),
		deref(s.Referer),
		deref(s.IPHash),
	}
}

func writeScansCSV(scans []*models.QRScan) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(scanExportHeader); err != nil {
		return nil, err
	}
	for _, s := range scans {
		if err := w.Write(scanRecord(s)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeScansXLSX(scans []*models.QRScan) ([]byte, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "scans"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := scanExportHeader
	if err := xl.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, s := range scans {
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		record := scanRecord(s)
		if err := xl.SetSheetRow(sheet, cellRef, &record); err != nil {
			return nil, err
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
