package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/MarkoPoloResearchLab/payments/pkg/engine"
)

const (
	columnKind   = "type"
	columnClient = "client"
	columnTx     = "tx"
	columnAmount = "amount"
)

// Reader streams transaction records from CSV input so the whole file never
// needs to be in memory at once. Columns are located by the header row and
// may appear in any order; the amount column may be absent entirely.
type Reader struct {
	csvReader *csv.Reader
	columns   columnIndex
	line      int
}

type columnIndex struct {
	kind   int
	client int
	tx     int
	amount int
}

// NewReader consumes the header row and prepares a record stream.
func NewReader(input io.Reader) (*Reader, error) {
	csvReader := csv.NewReader(input)
	csvReader.TrimLeadingSpace = true
	// Dispute-family rows commonly omit the trailing amount field.
	csvReader.FieldsPerRecord = -1

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns, err := mapColumns(header)
	if err != nil {
		return nil, err
	}
	return &Reader{csvReader: csvReader, columns: columns, line: 1}, nil
}

func mapColumns(header []string) (columnIndex, error) {
	columns := columnIndex{kind: -1, client: -1, tx: -1, amount: -1}
	for position, name := range header {
		switch strings.TrimSpace(name) {
		case columnKind:
			columns.kind = position
		case columnClient:
			columns.client = position
		case columnTx:
			columns.tx = position
		case columnAmount:
			columns.amount = position
		}
	}
	for _, required := range []struct {
		name     string
		position int
	}{
		{columnKind, columns.kind},
		{columnClient, columns.client},
		{columnTx, columns.tx},
	} {
		if required.position < 0 {
			return columnIndex{}, fmt.Errorf("header is missing the %q column", required.name)
		}
	}
	return columns, nil
}

// Read returns the next record or io.EOF at end of input. A malformed row
// yields an error naming the offending line; the stream remains usable for
// subsequent rows.
func (reader *Reader) Read() (Record, error) {
	row, err := reader.csvReader.Read()
	if err != nil {
		if err == io.EOF {
			return Record{}, io.EOF
		}
		reader.line++
		return Record{}, fmt.Errorf("line %d: %w", reader.line, err)
	}
	reader.line++

	clientField := fieldAt(row, reader.columns.client)
	clientValue, err := strconv.ParseUint(clientField, 10, 16)
	if err != nil {
		return Record{}, fmt.Errorf("line %d: client %q: %w", reader.line, clientField, err)
	}
	txField := fieldAt(row, reader.columns.tx)
	txValue, err := strconv.ParseUint(txField, 10, 32)
	if err != nil {
		return Record{}, fmt.Errorf("line %d: tx %q: %w", reader.line, txField, err)
	}

	return Record{
		Kind:   fieldAt(row, reader.columns.kind),
		Client: engine.ClientID(clientValue),
		Tx:     engine.TransactionID(txValue),
		Amount: fieldAt(row, reader.columns.amount),
	}, nil
}

func fieldAt(row []string, position int) string {
	if position < 0 || position >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[position])
}
