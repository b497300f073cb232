// Package rostersvc moves a school's student list in and out of spreadsheets.
package rostersvc

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/schooladmin/core"
	"github.com/trezcool/schooladmin/core/icon"
	"github.com/trezcool/schooladmin/core/school"
)

const SheetName = "Students"

var (
	header = []string{"Name", "Class", "Status", "Registration", "Code", "Code IDs"}

	errEmptyRoster = errors.New("the roster has no students")
	errBadRoster   = errors.New("invalid roster")
)

// Export writes one row per student. The code is written in draw order, as glyphs and as ids.
func Export(w io.Writer, students []school.Student, classes []school.Class) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}

	if err := setRow(f, 1, toCells(header)); err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return errors.Wrap(err, "styling header")
	}

	names := classNames(classes)
	for i, s := range students {
		status := "Active"
		if !s.Active() {
			status = "Inactive"
		}
		row := []interface{}{
			s.Name,
			className(s, names),
			status,
			s.Registration(),
			strings.Join(s.IconSequence.Glyphs(), " "),
			s.IconSequence.String(),
		}
		if err := setRow(f, i+2, row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(SheetName, "A", "B", 28); err != nil {
		return errors.Wrap(err, "sizing columns")
	}
	if err := f.SetColWidth(SheetName, "C", "F", 16); err != nil {
		return errors.Wrap(err, "sizing columns")
	}

	return errors.Wrap(f.Write(w), "writing roster")
}

func setRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return errors.Wrap(err, "locating row")
	}
	return errors.Wrapf(f.SetSheetRow(SheetName, cell, &values), "writing row %d", row)
}

func toCells(ss []string) []interface{} {
	cells := make([]interface{}, len(ss))
	for i, s := range ss {
		cells[i] = s
	}
	return cells
}

func classNames(classes []school.Class) map[string]string {
	names := make(map[string]string, len(classes))
	for _, c := range classes {
		names[c.ID] = c.Name
	}
	return names
}

func className(s school.Student, names map[string]string) string {
	if s.Class != nil && s.Class.Name != "" {
		return s.Class.Name
	}
	return names[s.ClassID]
}

// columns maps the roster fields to their index in a row.
type columns struct {
	name, class, code int
}

var defaultColumns = columns{name: 0, class: 1, code: -1}

// readHeader recognises a header row by its "name" column.
func readHeader(row []string) (columns, bool) {
	cols := columns{name: -1, class: -1, code: -1}
	for i, cell := range row {
		switch core.CleanString(cell, true) {
		case "name", "student", "student name":
			cols.name = i
		case "class", "class id", "class_id":
			cols.class = i
		case "code ids", "icon_sequence", "icon sequence":
			cols.code = i
		}
	}
	if cols.name < 0 {
		return defaultColumns, false
	}
	if cols.class < 0 {
		cols.class = defaultColumns.class
	}
	return cols, true
}

// Import reads the first sheet of r. The class column may hold a class name or id;
// an optional "Code IDs" column keeps existing codes. Rows without a code get none,
// the caller generates one per student when creating them.
// Every bad row is reported as one FieldError named after its row number.
func Import(r io.Reader, classes []school.Class) ([]school.StudentForm, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening roster")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("the roster has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %s", sheet)
	}

	cols, start := defaultColumns, 0
	if len(rows) > 0 {
		if hdr, ok := readHeader(rows[0]); ok {
			cols, start = hdr, 1
		}
	}

	var (
		forms []school.StudentForm
		flds  []core.FieldError
	)
	for i := start; i < len(rows); i++ {
		row := rows[i]
		name := cell(row, cols.name)
		if name == "" && cell(row, cols.class) == "" {
			continue
		}
		rowFld := fmt.Sprintf("row %d", i+1)

		form := school.StudentForm{Name: name}
		classID, err := resolveClass(cell(row, cols.class), classes)
		if err != nil {
			flds = append(flds, core.FieldError{Field: rowFld, Error: fmt.Sprintf("%s: %v", rowFld, err)})
			continue
		}
		form.ClassID = classID

		if raw := cell(row, cols.code); raw != "" {
			seq, err := icon.ParseSequence(raw)
			if err == nil {
				err = form.SetSequence(seq)
			}
			if err != nil {
				flds = append(flds, core.FieldError{Field: rowFld, Error: fmt.Sprintf("%s: %v", rowFld, err)})
				continue
			}
		}

		if err := form.Validate(); err != nil {
			flds = append(flds, core.FieldError{Field: rowFld, Error: fmt.Sprintf("%s: %v", rowFld, err)})
			continue
		}
		forms = append(forms, form)
	}

	if len(flds) > 0 {
		return nil, core.NewValidationError(errBadRoster, flds...)
	}
	if len(forms) == 0 {
		return nil, errEmptyRoster
	}
	return forms, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// resolveClass matches an id first, then a case-insensitive name.
func resolveClass(ref string, classes []school.Class) (string, error) {
	if ref == "" {
		return "", errors.New("class is required")
	}
	for _, c := range classes {
		if c.ID == ref {
			return c.ID, nil
		}
	}
	var found []string
	for _, c := range classes {
		if strings.EqualFold(strings.TrimSpace(c.Name), ref) {
			found = append(found, c.ID)
		}
	}
	switch len(found) {
	case 0:
		return "", errors.Errorf("unknown class %q", ref)
	case 1:
		return found[0], nil
	default:
		return "", errors.Errorf("class name %q is ambiguous, use its id", ref)
	}
}
