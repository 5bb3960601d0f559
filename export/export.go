package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"scholar/api"
)

const (
	FormatPdf  = "pdf"
	FormatXlsx = "xlsx"
	FormatCsv  = "csv"
)

// Render serializes the given profile into the requested format and returns
// the raw bytes along with the content type to serve them with.
func Render(profile api.ResearcherProfile, format string) ([]byte, string, error) {
	switch format {
	case FormatPdf:
		data, err := generatePdf(profile)
		return data, "application/pdf", err
	case FormatXlsx:
		data, err := generateExcel(profile)
		return data, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", err
	case FormatCsv:
		data, err := generateCSV(profile)
		return data, "text/csv", err
	default:
		return nil, "", fmt.Errorf("unsupported export format '%s'", format)
	}
}

func countLabel(c api.Count) string {
	if !c.Known() {
		return "unknown"
	}
	return fmt.Sprintf("%d", int(c))
}

func yearLabel(year int) string {
	if year == 0 {
		return ""
	}
	return fmt.Sprintf("%d", year)
}

func summaryRows(profile api.ResearcherProfile) [][]string {
	return [][]string{
		{"Registry ID", profile.RegistryId},
		{"Name", profile.DisplayName},
		{"Country", profile.Country},
		{"Email", profile.Email},
		{"Website", profile.Website},
		{"Total Citations", countLabel(profile.TotalCitations)},
		{"H-Index", countLabel(profile.HIndex)},
		{"Enriched With", joinOrNone(profile.EnhancedWith)},
		{"Keywords", joinOrNone(profile.Keywords)},
	}
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	joined := values[0]
	for _, value := range values[1:] {
		joined += ", " + value
	}
	return joined
}

func affiliationLabel(aff api.Affiliation) string {
	label := aff.Organization
	if aff.Role != "" {
		label += " - " + aff.Role
	}
	if aff.StartYear != 0 || aff.EndYear != 0 {
		end := "present"
		if aff.EndYear != 0 {
			end = fmt.Sprintf("%d", aff.EndYear)
		}
		label += fmt.Sprintf(" (%d to %s)", aff.StartYear, end)
	}
	return label
}

func generatePdf(profile api.ResearcherProfile) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Arial", "B", 14)
		pdf.SetFillColor(200, 200, 255)
		pdf.CellFormat(0, 10, "Researcher Profile", "0", 1, "C", true, 0, "")
		pdf.Ln(2)
	})

	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)

	for _, row := range summaryRows(profile) {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(40, 8, row[0], "1", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 12)
		pdf.CellFormat(0, 8, row[1], "1", 1, "L", false, 0, "")
	}
	pdf.Ln(5)

	if profile.Biography != "" {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(40, 8, "Biography:", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 12)
		pdf.MultiCell(0, 7, profile.Biography, "1", "L", false)
		pdf.Ln(5)
	}

	writeAffiliations := func(title string, affs []api.Affiliation) {
		if len(affs) == 0 {
			return
		}
		pdf.SetFont("Arial", "B", 14)
		pdf.SetFillColor(220, 220, 220)
		pdf.CellFormat(0, 10, title, "0", 1, "C", true, 0, "")
		pdf.Ln(3)
		pdf.SetFont("Arial", "", 12)
		for _, aff := range affs {
			pdf.MultiCell(0, 7, affiliationLabel(aff), "1", "L", false)
		}
		pdf.Ln(5)
	}
	writeAffiliations("Employments", profile.Employments)
	writeAffiliations("Educations", profile.Educations)

	if len(profile.Publications) > 0 {
		pdf.AddPage()
		pdf.SetFont("Arial", "B", 14)
		pdf.SetFillColor(220, 220, 220)
		pdf.CellFormat(0, 10, "Publications", "0", 1, "C", true, 0, "")
		pdf.Ln(3)

		for _, pub := range profile.Publications {
			pdf.SetFont("Arial", "B", 12)
			pdf.MultiCell(0, 7, pub.Title, "1", "L", false)
			pdf.SetFont("Arial", "", 12)
			detail := fmt.Sprintf("Year: %s   Citations: %s", yearLabel(pub.Year), countLabel(pub.CitationCount))
			if pub.Venue != "" {
				detail += "   Venue: " + pub.Venue
			}
			if pub.Doi != "" {
				detail += "   DOI: " + pub.Doi
			}
			pdf.MultiCell(0, 7, detail, "1", "L", false)
			pdf.Ln(2)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func generateCSV(profile api.ResearcherProfile) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Field", "Value"}); err != nil {
		return nil, err
	}
	for _, row := range summaryRows(profile) {
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}

	writeSection := func(title string, header []string, rows [][]string) error {
		if len(rows) == 0 {
			return nil
		}
		if err := writer.Write([]string{}); err != nil {
			return err
		}
		if err := writer.Write([]string{title}); err != nil {
			return err
		}
		if err := writer.Write(header); err != nil {
			return err
		}
		for _, row := range rows {
			if err := writer.Write(row); err != nil {
				return err
			}
		}
		return nil
	}

	var pubRows [][]string
	for _, pub := range profile.Publications {
		pubRows = append(pubRows, []string{pub.Title, yearLabel(pub.Year), pub.Venue, countLabel(pub.CitationCount), pub.Doi})
	}
	if err := writeSection("Publications", []string{"Title", "Year", "Venue", "Citations", "DOI"}, pubRows); err != nil {
		return nil, err
	}

	affRows := func(affs []api.Affiliation) [][]string {
		var rows [][]string
		for _, aff := range affs {
			rows = append(rows, []string{aff.Organization, aff.Role, yearLabel(aff.StartYear), yearLabel(aff.EndYear)})
		}
		return rows
	}
	affHeader := []string{"Organization", "Role", "Start Year", "End Year"}
	if err := writeSection("Employments", affHeader, affRows(profile.Employments)); err != nil {
		return nil, err
	}
	if err := writeSection("Educations", affHeader, affRows(profile.Educations)); err != nil {
		return nil, err
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func generateExcel(profile api.ResearcherProfile) ([]byte, error) {
	f := excelize.NewFile()

	summarySheet := "Summary"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}

	for i, row := range summaryRows(profile) {
		rowIndex := i + 1
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("A%d", rowIndex), row[0]); err != nil {
			return nil, err
		}
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("B%d", rowIndex), row[1]); err != nil {
			return nil, err
		}
	}

	if len(profile.Publications) > 0 {
		if err := createPublicationsSheet(f, profile.Publications); err != nil {
			return nil, err
		}
	}
	if len(profile.Employments) > 0 {
		if err := createAffiliationsSheet(f, "Employments", profile.Employments); err != nil {
			return nil, err
		}
	}
	if len(profile.Educations) > 0 {
		if err := createAffiliationsSheet(f, "Educations", profile.Educations); err != nil {
			return nil, err
		}
	}

	index, err := f.GetSheetIndex(summarySheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSheetHeader(f *excelize.File, sheetName string, headers []string) error {
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return err
		}
	}
	return nil
}

func createPublicationsSheet(f *excelize.File, pubs []api.Publication) error {
	sheetName := "Publications"
	if err := writeSheetHeader(f, sheetName, []string{"Title", "Year", "Venue", "Citations", "DOI"}); err != nil {
		return err
	}

	for i, pub := range pubs {
		rowNum := i + 2
		if err := f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowNum), pub.Title); err != nil {
			return err
		}
		if pub.Year != 0 {
			if err := f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum), pub.Year); err != nil {
				return err
			}
		}
		if err := f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowNum), pub.Venue); err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowNum), countLabel(pub.CitationCount)); err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowNum), pub.Doi); err != nil {
			return err
		}
	}
	return nil
}

func createAffiliationsSheet(f *excelize.File, sheetName string, affs []api.Affiliation) error {
	if err := writeSheetHeader(f, sheetName, []string{"Organization", "Role", "Start Year", "End Year"}); err != nil {
		return err
	}

	for i, aff := range affs {
		rowNum := i + 2
		if err := f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowNum), aff.Organization); err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum), aff.Role); err != nil {
			return err
		}
		if aff.StartYear != 0 {
			if err := f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowNum), aff.StartYear); err != nil {
				return err
			}
		}
		if aff.EndYear != 0 {
			if err := f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowNum), aff.EndYear); err != nil {
				return err
			}
		}
	}
	return nil
}
