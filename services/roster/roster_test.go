package rostersvc

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/schooladmin/core"
	"github.com/trezcool/schooladmin/core/icon"
	"github.com/trezcool/schooladmin/core/school"
)

var testClasses = []school.Class{
	{ID: "c1", Name: "Sunflowers"},
	{ID: "c2", Name: "Raindrops"},
	{ID: "c3", Name: "Pebbles"},
	{ID: "c4", Name: "pebbles"},
}

// sheet builds an xlsx in memory with the given rows on its first sheet.
func sheet(t *testing.T, rows [][]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestExport(t *testing.T) {
	students := []school.Student{
		{ID: "s1", Name: "Amani", ClassID: "c1", IconSequence: icon.Sequence{5, 1, 19, 3}, RegistrationStatus: "registered"},
		{ID: "s2", Name: "Baraka", ClassID: "c2", Class: &school.Ref{ID: "c2", Name: "Blue Room"}, IsActive: null.BoolFrom(false), IconSequence: icon.Sequence{2, 4, 6, 8}},
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, students, testClasses))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, []string{"Amani", "Sunflowers", "Active", "registered", "🐱 🍎 🌸 🍊", "5, 1, 19, 3"}, rows[1])
	assert.Equal(t, []string{"Baraka", "Blue Room", "Inactive", "pending", "🍌 🍓 🐶 🐰", "2, 4, 6, 8"}, rows[2])
}

func TestExportImport(t *testing.T) {
	students := []school.Student{
		{ID: "s1", Name: "Amani", ClassID: "c1", IconSequence: icon.Sequence{5, 1, 19, 3}},
		{ID: "s2", Name: "Baraka", ClassID: "c2"},
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, students, testClasses))

	forms, err := Import(&buf, testClasses)
	require.NoError(t, err)
	require.Len(t, forms, 2)

	assert.Equal(t, "Amani", forms[0].Name)
	assert.Equal(t, "c1", forms[0].ClassID)
	assert.Equal(t, icon.Sequence{5, 1, 19, 3}, forms[0].IconSequence)

	assert.Equal(t, "Baraka", forms[1].Name)
	assert.Equal(t, "c2", forms[1].ClassID)
	assert.True(t, forms[1].IconSequence.Empty())
}

func TestImport(t *testing.T) {
	tests := []struct {
		name      string
		rows      [][]string
		wantNames []string
		wantClass []string
		wantErr   error
		wantMsgs  []string
	}{
		{
			name:      "no header",
			rows:      [][]string{{"Amani", "Sunflowers"}, {"Baraka", "c2"}},
			wantNames: []string{"Amani", "Baraka"},
			wantClass: []string{"c1", "c2"},
		},
		{
			name:      "header in any order",
			rows:      [][]string{{"Class", "Student Name"}, {"raindrops", "  Chiku "}},
			wantNames: []string{"Chiku"},
			wantClass: []string{"c2"},
		},
		{
			name:      "blank rows skipped",
			rows:      [][]string{{"Name", "Class"}, {"", ""}, {"Amani", "c1"}},
			wantNames: []string{"Amani"},
			wantClass: []string{"c1"},
		},
		{
			name:    "only header",
			rows:    [][]string{{"Name", "Class"}},
			wantErr: errEmptyRoster,
		},
		{
			name: "bad rows reported together",
			rows: [][]string{
				{"Name", "Class", "Code IDs"},
				{"Amani", "Unknown"},
				{"Baraka", "pebbles"},
				{"", "c1"},
				{"Chiku", "c1", "1, 1, 2, 3"},
				{"Dalila", "c1", "one"},
				{"Eshe", ""},
			},
			wantErr: errBadRoster,
			wantMsgs: []string{
				`row 2: unknown class "Unknown"`,
				`row 3: class name "pebbles" is ambiguous, use its id`,
				"row 4: name is required",
				"row 5: icon_sequence must be 4 different icons between 1 and 24",
				`row 6: invalid icon id "one"`,
				"row 7: class is required",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forms, err := Import(sheet(t, tt.rows), testClasses)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Import() error = %v, wantErr %v", err, tt.wantErr)
					return
				}
				if tt.wantMsgs != nil {
					var vErr *core.ValidationError
					require.True(t, errors.As(err, &vErr))
					msgs := make([]string, len(vErr.Fields))
					for i, fld := range vErr.Fields {
						msgs[i] = fld.Error
					}
					assert.Equal(t, tt.wantMsgs, msgs)
				}
				return
			}
			require.NoError(t, err)
			names := make([]string, len(forms))
			classes := make([]string, len(forms))
			for i, f := range forms {
				names[i], classes[i] = f.Name, f.ClassID
			}
			assert.Equal(t, tt.wantNames, names)
			assert.Equal(t, tt.wantClass, classes)
		})
	}
}

func TestImport_notASpreadsheet(t *testing.T) {
	_, err := Import(bytes.NewBufferString("name,class\nAmani,c1\n"), testClasses)
	assert.Error(t, err)
}
