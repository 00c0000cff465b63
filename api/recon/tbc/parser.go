package tbc

import (
	"bytes"
	"encoding/csv"
	"errors"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

// Column layout of RESUXDOC exports. Positions are fixed by TBC, there is no
// header-driven mapping.
const (
	colEvento         = 0
	colNombreEvento   = 1
	colProductoCodigo = 2
	colFecha          = 3
	colProductoNombre = 4
	colUnidad         = 5
	colCantidad       = 6
	colValorUnitario  = 7
	colValorTotal     = 8
	colConsec         = 12
	colNroFac         = 14
)

// InvoiceLine is one normalized row of the RESUXDOC export.
type InvoiceLine struct {
	Evento         string  `json:"evento"`
	NombreEvento   string  `json:"nombre_evento"`
	Remision       string  `json:"remision"`
	Fecha          string  `json:"fecha"` // YYYY-MM-DD, empty when the token was unreadable
	ProductoCodigo string  `json:"producto_codigo"`
	ProductoNombre string  `json:"producto_nombre"`
	Unidad         string  `json:"unidad"`
	Cantidad       float64 `json:"cantidad"`
	ValorUnitario  float64 `json:"valor_unitario"`
	ValorTotal     float64 `json:"valor_total"`
}

// ParseResult carries the parsed lines plus the diagnostics the caller reports
// back to the user after an upload.
type ParseResult struct {
	Lines       []InvoiceLine
	TotalLines  int
	SkippedRows int
	Remisiones  map[string]bool
}

func newParseResult() *ParseResult {
	return &ParseResult{Lines: []InvoiceLine{}, Remisiones: map[string]bool{}}
}

var mesesTBC = map[string]string{
	"Ene": "01", "Feb": "02", "Mar": "03", "Abr": "04",
	"May": "05", "Jun": "06", "Jul": "07", "Ago": "08",
	"Sep": "09", "Oct": "10", "Nov": "11", "Dic": "12",
}

var remisionRun = regexp.MustCompile(`\d{4,5}`)

// ParseFecha converts a TBC date token (DD-Mon-AA, Spanish month
// abbreviations) to YYYY-MM-DD. Returns "" for anything it cannot read.
func ParseFecha(token string) string {
	partes := strings.Split(strings.TrimSpace(token), "-")
	if len(partes) != 3 {
		return ""
	}
	mes, ok := mesesTBC[partes[1]]
	if !ok {
		return ""
	}
	dia := partes[0]
	if len(dia) == 1 {
		dia = "0" + dia
	}
	return "20" + partes[2] + "-" + mes + "-" + dia
}

// ExtractRemision pulls the 4-5 digit remision number out of the CONSEC cell,
// falling back to the first 4-5 digit run inside the NROFAC cell ("RM 1205"
// style). Returns "" when neither cell yields a valid number.
func ExtractRemision(consec, nrofac string) string {
	var digits strings.Builder
	for _, r := range consec {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	remision := digits.String()
	if len(remision) == 4 || len(remision) == 5 {
		return remision
	}
	if m := remisionRun.FindString(nrofac); m != "" {
		return m
	}
	return ""
}

func parseFloatCell(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ParseRows normalizes an untyped RESUXDOC grid. Row 0 is the header. Rows
// whose evento does not equal the filter are skipped silently; rows without a
// valid remision are dropped and counted. A bad row never aborts the grid.
func ParseRows(rows [][]string, evento string) *ParseResult {
	res := newParseResult()
	for idx, row := range rows {
		if idx == 0 {
			continue
		}
		if cell(row, colEvento) != evento {
			continue
		}

		remision := ExtractRemision(cell(row, colConsec), cell(row, colNroFac))
		if remision == "" {
			log.Printf("[TBC] fila %d: sin remision valida, descartada", idx)
			res.SkippedRows++
			continue
		}

		cantidad, ok := parseFloatCell(cell(row, colCantidad))
		if !ok {
			cantidad = 1
		}
		valorUnitario, ok := parseFloatCell(cell(row, colValorUnitario))
		if !ok {
			valorUnitario = 0
		}
		valorTotal, ok := parseFloatCell(cell(row, colValorTotal))
		if !ok {
			valorTotal = cantidad * valorUnitario
		}

		nombreEvento := cell(row, colNombreEvento)
		if nombreEvento == "" {
			nombreEvento = "Remision Mercancia A"
		}
		productoCodigo := cell(row, colProductoCodigo)
		if productoCodigo == "" {
			productoCodigo = "UNKNOWN"
		}
		productoNombre := cell(row, colProductoNombre)
		if productoNombre == "" {
			productoNombre = "Producto sin nombre"
		}
		unidad := cell(row, colUnidad)
		if unidad == "" {
			unidad = "UN"
		}

		res.Lines = append(res.Lines, InvoiceLine{
			Evento:         evento,
			NombreEvento:   nombreEvento,
			Remision:       remision,
			Fecha:          ParseFecha(cell(row, colFecha)),
			ProductoCodigo: productoCodigo,
			ProductoNombre: productoNombre,
			Unidad:         unidad,
			Cantidad:       cantidad,
			ValorUnitario:  valorUnitario,
			ValorTotal:     valorTotal,
		})
		res.Remisiones[remision] = true
	}
	res.TotalLines = len(res.Lines)
	return res
}

// ReadGrid materializes an uploaded spreadsheet into rows of cells. Tries
// xlsx first, then legacy xls, then csv.
func ReadGrid(data []byte) ([][]string, error) {
	if xl, err := excelize.OpenReader(bytes.NewReader(data)); err == nil {
		defer xl.Close()
		rows, err := xl.GetRows(xl.GetSheetName(0))
		if err != nil {
			return nil, err
		}
		return rows, nil
	}

	if rows, err := readLegacyXLS(data); err == nil {
		return rows, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.New("file is not xlsx, xls or csv")
	}
	return rows, nil
}

// readLegacyXLS reads a BIFF (pre-2007) workbook. xlsReader wants a file
// path, so the upload is spilled to a temp file first.
func readLegacyXLS(data []byte) ([][]string, error) {
	tmp, err := os.CreateTemp("", "resuxdoc-*.xls")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, err
	}
	tmp.Close()

	book, err := xls.OpenFile(tmp.Name())
	if err != nil {
		return nil, err
	}
	sheet, err := book.GetSheet(0)
	if err != nil || sheet == nil {
		return nil, errors.New("xls workbook has no sheets")
	}
	var rows [][]string
	for _, xlsRow := range sheet.GetRows() {
		var vals []string
		for _, col := range xlsRow.GetCols() {
			vals = append(vals, col.GetString())
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// ParseResuxdoc reads and normalizes a RESUXDOC file from disk. An unreadable
// file yields an empty result, not an error: the caller treats "no lines" as
// "nothing usable found".
func ParseResuxdoc(path string, evento string) *ParseResult {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[TBC] no se pudo leer %s: %v", path, err)
		return newParseResult()
	}
	rows, err := ReadGrid(data)
	if err != nil {
		log.Printf("[TBC] no se pudo interpretar %s: %v", path, err)
		return newParseResult()
	}
	return ParseRows(rows, evento)
}
