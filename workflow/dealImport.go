package workflow

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/jonassync/licensing_backend/models"
	"github.com/jonassync/licensing_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedImportFormat = errors.New("only .xlsx and .csv files can be imported")
	ErrInvalidImportFile       = errors.New("invalid import file")
)

// import column -> header as written in the spreadsheet (matched case-insensitively)
const (
	colProjectName      = "project name"
	colSong             = "song"
	colContact          = "contact"
	colStatus           = "status"
	colFullSongValue    = "full song value"
	colFullRecordingFee = "full recording fee"
	colSplits           = "splits"
	colAirDate          = "air date"
	colTerritory        = "territory"
	colNotes            = "notes"
)

type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult tallies a deal import. Rows are numbered as in the
// spreadsheet, the header being row 1.
type ImportResult struct {
	Total   int              `json:"total"`
	Created int              `json:"created"`
	Failed  int              `json:"failed"`
	Errors  []ImportRowError `json:"errors"`
	DealIds []int            `json:"dealIds"`
}

func (r *ImportResult) fail(row int, err error) {
	r.Failed++
	r.Errors = append(r.Errors, ImportRowError{Row: row, Message: importErrorMessage(err)})
}

// ImportFormat returns "xlsx" or "csv" from the file name.
func ImportFormat(fileName string) (string, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx":
		return "xlsx", nil
	case ".csv":
		return "csv", nil
	default:
		return "", ErrUnsupportedImportFormat
	}
}

// ImportDeals creates one deal per data row of the first sheet (xlsx) or of
// the file (csv). Rows are independent: a bad row is reported and skipped,
// rows created before it stay.
func ImportDeals(ctx context.Context, fileName string, r io.Reader) (*ImportResult, error) {
	format, err := ImportFormat(fileName)
	if err != nil {
		return nil, err
	}
	var rows [][]string
	if format == "xlsx" {
		rows, err = readXlsxRows(r)
	} else {
		rows, err = readCsvRows(r)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImportFile, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: the file is empty", ErrInvalidImportFile)
	}

	columns := headerIndex(rows[0])
	if _, ok := columns[colProjectName]; !ok {
		return nil, fmt.Errorf(`%w: missing required column "Project Name"`, ErrInvalidImportFile)
	}

	result := &ImportResult{Errors: []ImportRowError{}, DealIds: []int{}}
	for idx, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		rowNumber := idx + 2
		result.Total++

		input, err := dealInputFromRow(ctx, columns, row)
		if err != nil {
			result.fail(rowNumber, err)
			continue
		}
		deal, err := models.CreateDeal(ctx, input)
		if err != nil {
			result.fail(rowNumber, err)
			continue
		}
		AfterDealSaved(ctx, deal, "", true)
		result.Created++
		result.DealIds = append(result.DealIds, deal.ID)
	}
	return result, nil
}

func readXlsxRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("the workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet: %v", err)
	}
	return rows, nil
}

func readCsvRows(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to read csv: %v", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func headerIndex(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.Join(strings.Fields(name), " "))
		if _, seen := columns[key]; key != "" && !seen {
			columns[key] = i
		}
	}
	return columns
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func cell(columns map[string]int, row []string, column string) string {
	i, ok := columns[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func optionalCell(columns map[string]int, row []string, column string) *string {
	if v := cell(columns, row, column); v != "" {
		return &v
	}
	return nil
}

func moneyCell(columns map[string]int, row []string, column string, label string) (*decimal.Decimal, error) {
	v := cell(columns, row, column)
	if v == "" {
		return nil, nil
	}
	amount, err := utils.ParseMoney(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %q is not an amount", label, v)
	}
	return &amount, nil
}

func dealInputFromRow(ctx context.Context, columns map[string]int, row []string) (*models.NewDeal, error) {
	projectName := cell(columns, row, colProjectName)
	input := &models.NewDeal{
		ProjectName: &projectName,
		Status:      optionalCell(columns, row, colStatus),
		Splits:      optionalCell(columns, row, colSplits),
		AirDate:     optionalCell(columns, row, colAirDate),
		Territory:   optionalCell(columns, row, colTerritory),
		Notes:       optionalCell(columns, row, colNotes),
	}

	var err error
	if input.FullSongValue, err = moneyCell(columns, row, colFullSongValue, "Full Song Value"); err != nil {
		return nil, err
	}
	if input.FullRecordingFee, err = moneyCell(columns, row, colFullRecordingFee, "Full Recording Fee"); err != nil {
		return nil, err
	}

	if title := cell(columns, row, colSong); title != "" {
		song, err := models.FindSongByTitle(ctx, title)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				return nil, fmt.Errorf("song %q not found", title)
			}
			return nil, err
		}
		input.SongId = &song.ID
	}
	if name := cell(columns, row, colContact); name != "" {
		contact, err := models.FindContactByName(ctx, name)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				return nil, fmt.Errorf("contact %q not found", name)
			}
			return nil, err
		}
		input.ContactId = &contact.ID
	}
	return input, nil
}

func importErrorMessage(err error) string {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		parts := make([]string, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			parts = append(parts, f.Field+" "+f.Message)
		}
		return strings.Join(parts, "; ")
	}
	return err.Error()
}
