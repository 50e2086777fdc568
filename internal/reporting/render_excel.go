package reporting

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
)

// RenderExcel writes a minimal OOXML (.xlsx) workbook with the sheets
// spec.md §4.5 names: Summary, Devices, Alerts, Telemetry, and an optional
// Analytics sheet. No spreadsheet library exists anywhere in the corpus's
// dependency surface, so this builds the zip/XML package structure
// directly on archive/zip and encoding/xml (justified in the design
// ledger).
func RenderExcel(agg Aggregation) ([]byte, error) {
	sheets := []sheet{
		summarySheet(agg),
		devicesSheet(agg),
		alertsSheet(agg),
		telemetrySheet(agg),
	}
	if agg.Analytics != nil {
		sheets = append(sheets, analyticsSheet(agg))
	}
	return buildWorkbook(sheets)
}

type sheet struct {
	name string
	rows [][]string
}

func summarySheet(agg Aggregation) sheet {
	rows := [][]string{
		{"Title", agg.Title},
		{"Period start", agg.Period[0].Format("2006-01-02T15:04:05Z07:00")},
		{"Period end", agg.Period[1].Format("2006-01-02T15:04:05Z07:00")},
		{"Device count", strconv.Itoa(len(agg.Devices))},
		{},
		{"Severity", "Count"},
	}
	for sev, count := range agg.SeverityHist {
		rows = append(rows, []string{string(sev), strconv.Itoa(count)})
	}
	return sheet{name: "Summary", rows: rows}
}

func devicesSheet(agg Aggregation) sheet {
	rows := [][]string{{"Device Key", "Name", "Is Active"}}
	for _, d := range agg.Devices {
		rows = append(rows, []string{d.Device.DeviceKey, d.Device.Name, strconv.FormatBool(d.Device.IsActive)})
	}
	return sheet{name: "Devices", rows: rows}
}

func alertsSheet(agg Aggregation) sheet {
	rows := [][]string{{"Triggered At", "Severity", "Device ID", "Message"}}
	for _, a := range agg.Alerts {
		rows = append(rows, []string{
			a.TriggeredAt.Format("2006-01-02T15:04:05Z07:00"),
			string(a.Severity),
			strconv.FormatInt(a.DeviceID, 10),
			a.Message,
		})
	}
	return sheet{name: "Alerts", rows: rows}
}

func telemetrySheet(agg Aggregation) sheet {
	rows := [][]string{{"Device", "Parameter", "Min", "Max", "Avg", "Count"}}
	for _, d := range agg.Devices {
		for _, p := range d.Parameters {
			rows = append(rows, []string{
				d.Device.DeviceKey, p.Parameter,
				strconv.FormatFloat(p.Min, 'f', 2, 64),
				strconv.FormatFloat(p.Max, 'f', 2, 64),
				strconv.FormatFloat(p.Avg, 'f', 2, 64),
				strconv.Itoa(p.Count),
			})
		}
	}
	return sheet{name: "Telemetry", rows: rows}
}

func analyticsSheet(agg Aggregation) sheet {
	rows := [][]string{{"Model", "Included"}}
	for name := range agg.Analytics {
		rows = append(rows, []string{name, "yes"})
	}
	return sheet{name: "Analytics", rows: rows}
}

// buildWorkbook assembles the minimal set of parts a spreadsheet reader
// requires: [Content_Types].xml, _rels, workbook.xml + its rels, and one
// worksheetN.xml per sheet, all string-typed cells (inline strings) to
// avoid a shared-strings table.
func buildWorkbook(sheets []sheet) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := writeZipFile(zw, "[Content_Types].xml", contentTypesXML(len(sheets))); err != nil {
		return nil, err
	}
	if err := writeZipFile(zw, "_rels/.rels", rootRelsXML); err != nil {
		return nil, err
	}
	if err := writeZipFile(zw, "xl/workbook.xml", workbookXML(sheets)); err != nil {
		return nil, err
	}
	if err := writeZipFile(zw, "xl/_rels/workbook.xml.rels", workbookRelsXML(len(sheets))); err != nil {
		return nil, err
	}
	for i, s := range sheets {
		name := fmt.Sprintf("xl/worksheets/sheet%d.xml", i+1)
		if err := writeZipFile(zw, name, worksheetXML(s)); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close xlsx archive: %w", err)
	}
	return buf.Bytes(), nil
}

func writeZipFile(zw *zip.Writer, name, content string) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %s: %w", name, err)
	}
	_, err = w.Write([]byte(content))
	return err
}

const rootRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="xl/workbook.xml"/>
</Relationships>`

func contentTypesXML(sheetCount int) string {
	var overrides bytes.Buffer
	for i := 1; i <= sheetCount; i++ {
		fmt.Fprintf(&overrides, `<Override PartName="/xl/worksheets/sheet%d.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>`, i)
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>
%s
</Types>`, overrides.String())
}

func workbookXML(sheets []sheet) string {
	var entries bytes.Buffer
	for i, s := range sheets {
		fmt.Fprintf(&entries, `<sheet name="%s" sheetId="%d" r:id="rId%d"/>`, xmlEscape(s.name), i+1, i+1)
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets>%s</sheets>
</workbook>`, entries.String())
}

func workbookRelsXML(sheetCount int) string {
	var rels bytes.Buffer
	for i := 1; i <= sheetCount; i++ {
		fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet%d.xml"/>`, i, i)
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
%s
</Relationships>`, rels.String())
}

func worksheetXML(s sheet) string {
	var rowsXML bytes.Buffer
	for r, row := range s.rows {
		fmt.Fprintf(&rowsXML, `<row r="%d">`, r+1)
		for c, cell := range row {
			ref := columnRef(c) + strconv.Itoa(r+1)
			fmt.Fprintf(&rowsXML, `<c r="%s" t="inlineStr"><is><t>%s</t></is></c>`, ref, xmlEscape(cell))
		}
		rowsXML.WriteString(`</row>`)
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<sheetData>%s</sheetData>
</worksheet>`, rowsXML.String())
}

// columnRef converts a zero-based column index into its spreadsheet letter
// reference (0 -> "A", 25 -> "Z", 26 -> "AA").
func columnRef(col int) string {
	var out []byte
	col++
	for col > 0 {
		col--
		out = append([]byte{byte('A' + col%26)}, out...)
		col /= 26
	}
	return string(out)
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}
