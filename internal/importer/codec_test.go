package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alexanderramin/wbs/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"plan.json", FormatJSON, false},
		{"plan.YAML", FormatYAML, false},
		{"dir/plan.yml", FormatYAML, false},
		{"plan.toml", FormatTOML, false},
		{"plan.csv", FormatCSV, false},
		{"plan.xlsx", "", true},
		{"plan", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			got, err := FormatFromPath(tc.path)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecode_YAML(t *testing.T) {
	src := `
version: 1
project:
  short_id: ROV01
  name: Rover
root:
  name: Rover
  children:
    - name: Chassis
      cost: 1200
      trl: 5
      children:
        - name: Weld
          start: "2024-03-01"
          end: "2024-03-05"
          status: in_progress
`
	doc, err := Decode(FormatYAML, strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, "ROV01", doc.Project.ShortID)
	require.Len(t, doc.Root.Children, 1)
	chassis := doc.Root.Children[0]
	assert.Equal(t, 1200.0, chassis.Cost)
	require.NotNil(t, chassis.TRL)
	assert.Equal(t, 5, *chassis.TRL)
	assert.Equal(t, "in_progress", chassis.Children[0].Status)
	assert.Empty(t, Validate(doc))
}

func TestDecode_TOML(t *testing.T) {
	src := `
version = 1

[root]
name = "Rover"

[[root.children]]
name = "Chassis"
cost = 1200.0

[[root.children.children]]
name = "Weld"
start = "2024-03-01"
dependencies = ["1.2"]

[[root.children]]
name = "Wheels"
`
	doc, err := Decode(FormatTOML, strings.NewReader(src))
	require.NoError(t, err)

	require.Len(t, doc.Root.Children, 2)
	assert.Equal(t, "Weld", doc.Root.Children[0].Children[0].Name)
	assert.Equal(t, []string{"1.2"}, doc.Root.Children[0].Children[0].Dependencies)
	assert.Empty(t, Validate(doc))
}

func TestDecode_CSV(t *testing.T) {
	src := "code,name,cost,start,end,dependencies\n" +
		"1,Rover,,,,\n" +
		"1.2,Wheels,300,2024-04-01,2024-04-10,1.1.1\n" +
		"1.1,Chassis,1200,,,\n" +
		"1.1.1,Weld,50,2024-03-01,2024-03-05,\n" +
		",,,,,\n"

	doc, err := Decode(FormatCSV, strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, "Rover", doc.Root.Name)
	require.Len(t, doc.Root.Children, 2)
	assert.Equal(t, "Wheels", doc.Root.Children[0].Name, "siblings keep row order")
	assert.Equal(t, "1.2", doc.Root.Children[0].Code)
	assert.Equal(t, "Weld", doc.Root.Children[1].Children[0].Name)
	assert.Empty(t, Validate(doc))

	root, err := ToTree(doc, "p", testutil.FixedNow)
	require.NoError(t, err)
	weld := root.Children[1].Children[0]
	assert.Equal(t, []string{weld.ID}, root.Children[0].Dependencies)
}

func TestDecode_CSVErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"empty", "", "empty file"},
		{"missing column", "code,cost\n1,5\n", `missing "name" column`},
		{"bad code", "code,name\n1,Root\n1.x,Bad\n", "line 3: invalid code"},
		{"duplicate code", "code,name\n1,Root\n1.1,A\n1.1,B\n", `line 4: duplicate code "1.1"`},
		{"second root", "code,name\n1,Root\n2,Other\n", "second root"},
		{"orphan", "code,name\n1,Root\n1.3.1,Lost\n", `no parent row "1.3"`},
		{"no root", "code,name\n1.1,A\n", "no root row"},
		{"bad cost", "code,name,cost\n1,Root,lots\n", "cost: invalid number"},
		{"bad trl", "code,name,trl\n1,Root,high\n", "trl: invalid integer"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(FormatCSV, strings.NewReader(tc.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestEncode_CSVRewritesCustomCodes(t *testing.T) {
	doc := validDocument()
	doc.Root.Children[0].Children[0].Code = "SK"
	doc.Root.Children[0].Children[1].Dependencies = []string{"SK"}

	var buf strings.Builder
	require.NoError(t, Encode(FormatCSV, &buf, doc))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, strings.Join(csvColumns, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[4], "1.1.2,"), lines[4])
	assert.Contains(t, lines[4], ",1.1.1,")
}

func TestDecode_UnknownFormat(t *testing.T) {
	_, err := Decode("xml", strings.NewReader("<x/>"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"root":{"name":"Probe","children":[{"name":"P1"}]}}`), 0o644))

	doc, format, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, format)
	assert.Equal(t, "P1", doc.Root.Children[0].Name)

	_, _, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("root: [unterminated"), 0o644))
	_, _, err = LoadFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing yaml")
}
