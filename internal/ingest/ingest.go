// Package ingest reads transaction report CSV files and turns them into
// per-client transaction sets. The reports come from an operations export
// with Spanish headers, so column names and cell values are normalized
// leniently: unknown columns are ignored, unparseable amounts become zero
// and unparseable dates leave the record without a timestamp.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adamopay/txrisk/pkg/models"
)

// canonical column identifiers after header normalization.
const (
	colClient     = "client"
	colDate       = "date"
	colTime       = "time"
	colAmount     = "amount"
	colCommission = "commission"
	colStatus     = "status"
	colType       = "type"
	colPerson     = "person"
)

// headerAliases maps normalized header text (uppercased, trimmed) to a
// canonical column. Covers the legacy report headers and the snake_case
// names used by newer exports.
var headerAliases = map[string]string{
	"CLIENTE":                colClient,
	"CLIENT":                 colClient,
	"FECHA":                  colDate,
	"DATE":                   colDate,
	"HORA":                   colTime,
	"TIME":                   colTime,
	"MONTO (COP)":            colAmount,
	"MONTO_COP":              colAmount,
	"AMOUNT":                 colAmount,
	"COMISION":               colCommission,
	"COMISION (COP)":         colCommission,
	"COMISION ((MONTO TOT)":  colCommission,
	"COMISION_COP":           colCommission,
	"COMMISSION":             colCommission,
	"ESTADO":                 colStatus,
	"STATUS":                 colStatus,
	"TIPO DE TRA":            colType,
	"TIPO DE TRANSACCION":    colType,
	"TIPO_TX":                colType,
	"TYPE":                   colType,
	"TIPO_PERSONA":           colPerson,
	"TIPO DE IDENTIFICACION": colPerson,
	"PERSON_TYPE":            colPerson,
}

// identification document codes used when the person column carries the
// beneficiary document type instead of a Natural/Juridica label.
var naturalIDTypes = map[string]bool{
	"CC": true, "CE": true, "TI": true, "PASAPORTE": true, "PPT": true,
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// LoadFile reads the CSV at path and groups its rows per client.
func LoadFile(path string) ([]models.ClientTransactionSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening transaction report: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a transaction report CSV. The first row must be a header.
// Resulting sets are sorted by client ID; records keep file order. Rows
// with no client value are grouped under an empty client ID.
func Load(r io.Reader) ([]models.ClientTransactionSet, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("transaction report is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("reading report header: %w", err)
	}
	cols := mapHeader(header)
	if _, ok := cols[colAmount]; !ok {
		return nil, fmt.Errorf("transaction report has no amount column")
	}

	byClient := map[string][]models.TransactionRecord{}
	var order []string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading report row: %w", err)
		}
		client := cleanText(cell(row, cols, colClient))
		if _, seen := byClient[client]; !seen {
			order = append(order, client)
		}
		byClient[client] = append(byClient[client], parseRecord(row, cols))
	}

	sort.Strings(order)
	sets := make([]models.ClientTransactionSet, 0, len(order))
	for _, client := range order {
		sets = append(sets, models.ClientTransactionSet{ClientID: client, Records: byClient[client]})
	}
	return sets, nil
}

func mapHeader(header []string) map[string]int {
	cols := map[string]int{}
	for i, h := range header {
		key := strings.ToUpper(strings.TrimSpace(h))
		if canonical, ok := headerAliases[key]; ok {
			if _, dup := cols[canonical]; !dup {
				cols[canonical] = i
			}
		}
	}
	return cols
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func parseRecord(row []string, cols map[string]int) models.TransactionRecord {
	return models.TransactionRecord{
		Timestamp:  parseTimestamp(cell(row, cols, colDate), cell(row, cols, colTime)),
		Amount:     parseAmount(cell(row, cols, colAmount)),
		Commission: parseAmount(cell(row, cols, colCommission)),
		Status:     parseStatus(cell(row, cols, colStatus)),
		Type:       cleanText(cell(row, cols, colType)),
		PersonType: parsePersonType(cell(row, cols, colPerson)),
	}
}

// cleanText trims the value and collapses the spreadsheet null spellings
// to the empty string.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "nan", "none", "null":
		return ""
	}
	return s
}

// parseAmount accepts plain numbers as well as currency-formatted cells
// like "$ 15,000,000". Anything unparseable counts as zero.
func parseAmount(s string) decimal.Decimal {
	s = cleanText(s)
	if s == "" {
		return decimal.Zero
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseTimestamp combines a date cell with an optional time cell. A date
// that parses without a time component gets the time cell appended when
// present. Unparseable input yields nil.
func parseTimestamp(date, clock string) *time.Time {
	date = cleanText(date)
	if date == "" {
		return nil
	}
	clock = cleanText(clock)
	candidates := []string{date}
	if clock != "" {
		candidates = append([]string{date + " " + clock}, candidates...)
	}
	for _, c := range candidates {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, c); err == nil {
				return &t
			}
		}
	}
	return nil
}

func parseStatus(s string) models.TransactionStatus {
	u := strings.ToUpper(cleanText(s))
	switch {
	case strings.Contains(u, "PAGADO") || u == "PAID":
		return models.StatusPaid
	case strings.Contains(u, "VALIDADO") || u == "VALIDATED":
		return models.StatusValidated
	case strings.Contains(u, "APROBADO") || u == "APPROVED":
		return models.StatusApproved
	case strings.Contains(u, "RECHAZ") || u == "REJECTED":
		return models.StatusRejected
	case strings.Contains(u, "RETOR") || strings.Contains(u, "DEVOL") || u == "RETURNED":
		return models.StatusReturned
	default:
		return models.StatusUnknown
	}
}

// parsePersonType accepts either a Natural/Juridica label or the
// beneficiary identification document code.
func parsePersonType(s string) models.PersonType {
	u := strings.ToUpper(cleanText(s))
	switch {
	case u == "":
		return models.PersonUnknown
	case strings.HasPrefix(u, "NATURAL"):
		return models.PersonNatural
	case strings.HasPrefix(u, "JURIDICA") || strings.HasPrefix(u, "JURÍDICA") || u == "NIT":
		return models.PersonJuridical
	case naturalIDTypes[u]:
		return models.PersonNatural
	default:
		return models.PersonUnknown
	}
}
