package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// ReportFormat selects the report artifact type.
type ReportFormat string

const (
	FormatCSV  ReportFormat = "csv"
	FormatXLSX ReportFormat = "xlsx"
)

// reportRow is the fixed report schema. Column order is part of the contract
// with downstream outreach tooling and must not change.
type reportRow struct {
	JobTitle      string `csv:"Job Title"`
	FirstName     string `csv:"First Name"`
	LastName      string `csv:"Last Name"`
	FullName      string `csv:"Full Name"`
	PersonalEmail string `csv:"Personal Email"`
	GeneralEmail  string `csv:"General Email"`
	Phone         string `csv:"Phone"`
	LinkedInURL   string `csv:"LinkedIn URL"`
	Website       string `csv:"Website"`
	CompanyName   string `csv:"Company Name"`
	Address       string `csv:"Address"`
	Street        string `csv:"Street"`
	Suburb        string `csv:"Suburb"`
	State         string `csv:"State"`
	Postcode      string `csv:"Postcode"`
	Country       string `csv:"Country"`
}

// ErrEmptyReport is returned when a written artifact contains no bytes. The
// orchestrator resolves it to the no-leads outcome rather than publishing an
// empty download.
var ErrEmptyReport = eris.New("report: empty artifact")

// addressPattern matches the directory's address shape:
// "street, suburb STATE POSTCODE, country".
var addressPattern = regexp.MustCompile(`^(.+?),\s*(.+?)\s+([A-Z]{2,3})\s+(\d{4}),\s*(.+)$`)

// ReportGenerator writes the final lead report artifact and returns its
// metadata for persistence.
type ReportGenerator struct {
	dir     string
	country string
}

// NewReportGenerator creates a report generator writing into dir. country is
// the default country for addresses that do not carry one.
func NewReportGenerator(dir, country string) *ReportGenerator {
	if dir == "" {
		dir = "reports"
	}
	if country == "" {
		country = "Australia"
	}
	return &ReportGenerator{dir: dir, country: country}
}

// Generate writes the record set as a report in the requested format and
// returns the artifact metadata. The record set must be non-empty; the
// orchestrator handles the no-leads path before reaching this stage.
func (g *ReportGenerator) Generate(set *model.RecordSet, businessType, location string, format ReportFormat) (*model.ReportMeta, error) {
	if set.Len() == 0 {
		return nil, eris.New("report: empty record set")
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "report: create directory")
	}

	rows := make([]reportRow, set.Len())
	for i, rec := range set.Records {
		rows[i] = g.toRow(rec)
	}

	now := time.Now()
	filename := reportFilename(businessType, location, now, format)
	path := filepath.Join(g.dir, filename)

	var err error
	switch format {
	case FormatXLSX:
		err = writeXLSX(path, rows)
	default:
		err = writeCSV(path, rows)
	}
	if err != nil {
		return nil, err
	}

	meta, err := artifactMeta(path, filename, now)
	if err != nil {
		return nil, err
	}

	zap.L().Info("pipeline: report written",
		zap.String("filename", filename),
		zap.Int64("size_bytes", meta.SizeBytes),
		zap.Int("rows", len(rows)),
	)
	return meta, nil
}

// artifactMeta stats a written artifact and builds its metadata. A zero-byte
// artifact is removed and reported as ErrEmptyReport.
func artifactMeta(path, filename string, now time.Time) (*model.ReportMeta, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, eris.Wrap(err, "report: stat artifact")
	}
	if info.Size() == 0 {
		_ = os.Remove(path)
		return nil, ErrEmptyReport
	}
	return &model.ReportMeta{
		Filename:  filename,
		SizeBytes: info.Size(),
		CreatedAt: now.UTC(),
	}, nil
}

// Path returns the absolute location of a report artifact by filename.
func (g *ReportGenerator) Path(filename string) string {
	return filepath.Join(g.dir, filepath.Base(filename))
}

func (g *ReportGenerator) toRow(rec model.BusinessRecord) reportRow {
	street, suburb, state, postcode, country := splitAddress(rec.Address)
	if country == "" {
		country = g.country
	}

	fullName := strings.TrimSpace(rec.ContactFirstName + " " + rec.ContactLastName)

	return reportRow{
		JobTitle:      rec.ContactTitle,
		FirstName:     rec.ContactFirstName,
		LastName:      rec.ContactLastName,
		FullName:      fullName,
		PersonalEmail: rec.ContactPersonalEmail,
		GeneralEmail:  rec.ContactGeneralEmail,
		Phone:         rec.Phone,
		LinkedInURL:   rec.ContactLinkedInURL,
		Website:       rec.Website,
		CompanyName:   rec.CompanyName,
		Address:       rec.Address,
		Street:        street,
		Suburb:        suburb,
		State:         state,
		Postcode:      postcode,
		Country:       country,
	}
}

// splitAddress decomposes a directory address into its components. Addresses
// that do not match the expected shape keep their raw form in the Address
// column and leave the component columns empty.
func splitAddress(address string) (street, suburb, state, postcode, country string) {
	m := addressPattern.FindStringSubmatch(strings.TrimSpace(address))
	if m == nil {
		return "", "", "", "", ""
	}
	return m[1], m[2], m[3], m[4], m[5]
}

func writeCSV(path string, rows []reportRow) error {
	data, err := csvutil.Marshal(rows)
	if err != nil {
		return eris.Wrap(err, "report: marshal csv")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "report: write csv")
	}
	return nil
}

func writeXLSX(path string, rows []reportRow) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	header := sheet.AddRow()
	for _, name := range []string{
		"Job Title", "First Name", "Last Name", "Full Name",
		"Personal Email", "General Email", "Phone", "LinkedIn URL",
		"Website", "Company Name", "Address", "Street", "Suburb",
		"State", "Postcode", "Country",
	} {
		header.AddCell().SetString(name)
	}

	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range []string{
			r.JobTitle, r.FirstName, r.LastName, r.FullName,
			r.PersonalEmail, r.GeneralEmail, r.Phone, r.LinkedInURL,
			r.Website, r.CompanyName, r.Address, r.Street, r.Suburb,
			r.State, r.Postcode, r.Country,
		} {
			row.AddCell().SetString(v)
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrap(err, "report: write xlsx")
	}
	return nil
}

var filenameSanitizer = regexp.MustCompile(`[^a-z0-9]+`)

func reportFilename(businessType, location string, t time.Time, format ReportFormat) string {
	slug := func(s string) string {
		s = filenameSanitizer.ReplaceAllString(strings.ToLower(s), "-")
		return strings.Trim(s, "-")
	}
	ext := "csv"
	if format == FormatXLSX {
		ext = "xlsx"
	}
	return fmt.Sprintf("leads-%s-%s-%s.%s", slug(businessType), slug(location), t.Format("20060102-150405"), ext)
}
