package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alexanderramin/wbs/internal/importer"
	"github.com/alexanderramin/wbs/internal/repository"
	"github.com/alexanderramin/wbs/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const roverYAML = `
version: 1
project:
  short_id: ROV01
  name: Rover
  currency: eur
root:
  name: Rover
  children:
    - name: Chassis
      cost: 1000
      children:
        - name: Weld
          cost: 200
          start: "2024-03-01"
          end: "2024-03-05"
        - name: Paint
          cost: 50
          start: "2024-03-06"
          end: "2024-03-08"
          dependencies: ["1.1.1"]
    - name: Wheels
      cost: 300
`

func TestImportService_ImportFileCreatesProject(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rover.yaml")
	require.NoError(t, os.WriteFile(path, []byte(roverYAML), 0o644))

	res, err := s.imports.ImportFile(ctx, path, ImportOptions{})
	require.NoError(t, err)
	assert.False(t, res.Replaced)
	assert.Equal(t, 5, res.NodeCount)
	assert.Equal(t, 1, res.DependencyCount)
	assert.Equal(t, "ROV01", res.Project.ShortID)
	assert.Equal(t, "EUR", res.Project.Currency)

	tree, err := s.trees.Tree(ctx, res.Project.ID)
	require.NoError(t, err)
	assert.Equal(t, 1550.0, tree.TotalCost)
	chassis := tree.Children[0]
	assert.Equal(t, testutil.Date("2024-03-01"), *chassis.StartDate())
	assert.Equal(t, testutil.Date("2024-03-08"), *chassis.EndDate())
	assert.Equal(t, []string{chassis.Children[0].ID}, chassis.Children[1].Dependencies)

	fetched, err := s.projects.GetByShortID(ctx, "ROV01")
	require.NoError(t, err)
	assert.Equal(t, tree.ID, fetched.RootID)
}

func TestImportService_ReplaceExistingTree(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	p, root := s.createProject(t, "Probe", "PRB01")
	s.add(t, p.ID, root.ID, NodeInput{Name: "Old phase", Cost: 5})

	doc, err := importer.Decode(importer.FormatYAML, bytes.NewBufferString(roverYAML))
	require.NoError(t, err)
	res, err := s.imports.ImportDocument(ctx, doc, ImportOptions{ProjectID: p.ID})
	require.NoError(t, err)
	assert.True(t, res.Replaced)
	assert.Equal(t, p.ID, res.Project.ID)

	tree, err := s.trees.Tree(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, tree.Children, 2)
	assert.Equal(t, "Chassis", tree.Children[0].Name)

	list, err := s.projects.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1, "no new project for a replace")
}

func TestImportService_ShortIDOverride(t *testing.T) {
	s := setupServices(t)
	doc, err := importer.Decode(importer.FormatYAML, bytes.NewBufferString(roverYAML))
	require.NoError(t, err)

	res, err := s.imports.ImportDocument(context.Background(), doc, ImportOptions{ShortID: "ROVB02", Name: "Rover B"})
	require.NoError(t, err)
	assert.Equal(t, "ROVB02", res.Project.ShortID)
	assert.Equal(t, "Rover B", res.Project.Name)
}

func TestImportService_InvalidDocument(t *testing.T) {
	s := setupServices(t)
	doc := &importer.Document{
		Project: importer.ProjectDoc{ShortID: "BAD01"},
		Root: importer.NodeDoc{Name: "Bad", Children: []importer.NodeDoc{
			{Name: "", Dependencies: []string{"9"}},
		}},
	}

	_, err := s.imports.ImportDocument(context.Background(), doc, ImportOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	var verr *importer.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errs, 2)

	list, err := s.projects.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestImportService_RollbackOnSaveFailure(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	// #1 project insert, #2 and #3 clear old rows, #4 root insert, #5 first phase insert.
	failUoW := &testutil.FailOnNthExecUoW{DB: database, FailOn: 5, Err: errors.New("injected insert failure")}
	svc := NewImportService(failUoW, "")

	doc, err := importer.Decode(importer.FormatYAML, bytes.NewBufferString(roverYAML))
	require.NoError(t, err)
	_, err = svc.ImportDocument(ctx, doc, ImportOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "injected insert failure")

	projects, err := repository.NewSQLiteProjectRepo(database).List(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects, "transaction rolled back")
}

func TestExportService_RoundTripThroughImport(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rover.yaml")
	require.NoError(t, os.WriteFile(path, []byte(roverYAML), 0o644))
	res, err := s.imports.ImportFile(ctx, path, ImportOptions{})
	require.NoError(t, err)

	for _, format := range importer.Formats {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, s.exports.Export(ctx, res.Project.ID, format, &buf))

			doc, err := importer.Decode(format, &buf)
			require.NoError(t, err)
			again, err := s.imports.ImportDocument(ctx, doc, ImportOptions{ProjectID: res.Project.ID})
			require.NoError(t, err)
			assert.Equal(t, 1550.0, again.Root.TotalCost)
			assert.Equal(t, res.Root.ID, again.Root.ID, "exported ids are kept")
			assert.Equal(t, res.DependencyCount, again.DependencyCount)
		})
	}

	err = s.exports.Export(ctx, res.Project.ID, "xml", &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestImportService_SameExportTwiceGetsFreshIDs(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rover.yaml")
	require.NoError(t, os.WriteFile(path, []byte(roverYAML), 0o644))
	first, err := s.imports.ImportFile(ctx, path, ImportOptions{})
	require.NoError(t, err)

	doc, err := s.exports.Document(ctx, first.Project.ID)
	require.NoError(t, err)
	second, err := s.imports.ImportDocument(ctx, doc, ImportOptions{ShortID: "ROV02"})
	require.NoError(t, err)

	assert.NotEqual(t, first.Root.ID, second.Root.ID)
	assert.Equal(t, 1550.0, second.Root.TotalCost)
	assert.Equal(t, 1, second.DependencyCount)

	tree, err := s.trees.Tree(ctx, second.Project.ID)
	require.NoError(t, err)
	weld, paint := tree.Children[0].Children[0], tree.Children[0].Children[1]
	assert.Equal(t, []string{weld.ID}, paint.Dependencies)

	original, err := s.trees.Tree(ctx, first.Project.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Root.ID, original.ID, "first project untouched")
}
