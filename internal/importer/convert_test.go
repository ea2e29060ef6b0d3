package importer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/alexanderramin/wbs/internal/rollup"
	"github.com/alexanderramin/wbs/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() *domain.TreeNode {
	root := testutil.NewTestTree("Satellite")
	design := testutil.AddNode(root, "Design", testutil.WithCost(100), testutil.WithTRL(4))
	sketch := testutil.AddNode(design, "Sketch", testutil.WithCost(50),
		testutil.WithDates("2024-01-01", "2024-01-10"), testutil.WithStatus(domain.StatusCompleted),
		testutil.WithResponsible("Ana"))
	testutil.AddNode(design, "Review", testutil.WithCost(30),
		testutil.WithDates("2024-01-11", "2024-01-20"), testutil.WithDependencies(sketch.ID))
	build := testutil.AddNode(root, "Build", testutil.WithDates("2024-02-01", ""))
	build.Description = "assembly, integration"
	rollup.ProcessCompleteNode(root)
	return root
}

func TestToTree_BuildsRawTree(t *testing.T) {
	doc := validDocument()

	root, err := ToTree(doc, "proj-1", testutil.FixedNow)
	require.NoError(t, err)

	assert.Equal(t, domain.LevelProject, root.Level)
	assert.Nil(t, root.ParentID)
	require.Len(t, root.Children, 2)

	design := root.Children[0]
	assert.Equal(t, domain.LevelPhase, design.Level)
	assert.Equal(t, root.ID, *design.ParentID)
	assert.Equal(t, "proj-1", design.ProjectID)
	require.NotNil(t, design.TRL)
	assert.Equal(t, 4, *design.TRL)

	sketch, review := design.Children[0], design.Children[1]
	assert.Equal(t, domain.LevelActivity, sketch.Level)
	assert.Equal(t, 1, review.OrderIndex)
	assert.Equal(t, domain.StatusCompleted, sketch.Status)
	assert.Equal(t, []string{sketch.ID}, review.Dependencies)
	assert.Equal(t, testutil.Date("2024-01-01"), *sketch.Start.Explicit)
	assert.Zero(t, design.TotalCost, "ToTree does not roll up")

	_, err = uuid.Parse(sketch.ID)
	assert.NoError(t, err, "fresh ids are uuids")
}

func TestToTree_KeepsValidUUIDs(t *testing.T) {
	doc := validDocument()
	keep := uuid.New().String()
	doc.Root.Children[0].ID = keep
	doc.Root.Children[1].ID = "not-a-uuid"
	doc.Root.Children[1].Dependencies = []string{keep}

	root, err := ToTree(doc, "p", testutil.FixedNow)
	require.NoError(t, err)

	assert.Equal(t, keep, root.Children[0].ID)
	assert.NotEqual(t, "not-a-uuid", root.Children[1].ID)
	assert.Equal(t, []string{keep}, root.Children[1].Dependencies)
}

func TestRenumberIDs(t *testing.T) {
	root := sampleTree()
	design := root.Children[0]
	oldRoot, oldSketch := root.ID, design.Children[0].ID

	RenumberIDs(root)

	assert.NotEqual(t, oldRoot, root.ID)
	assert.Equal(t, root.ID, *design.ParentID)
	sketch, review := design.Children[0], design.Children[1]
	assert.NotEqual(t, oldSketch, sketch.ID)
	assert.Equal(t, design.ID, *sketch.ParentID)
	assert.Equal(t, []string{sketch.ID}, review.Dependencies)
}

func TestToTree_RejectsInvalidDocument(t *testing.T) {
	doc := validDocument()
	doc.Root.Name = ""
	doc.Root.Children[0].TRL = ptrInt(0)

	_, err := ToTree(doc, "p", testutil.FixedNow)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errs, 2)
	assert.Contains(t, err.Error(), "import validation failed (2 errors)")
}

func TestFromTree_WritesCodesAndDerivedValues(t *testing.T) {
	root := sampleTree()
	proj := testutil.NewTestProject("Satellite", testutil.WithShortID("SAT01"))

	doc := FromTree(proj, root)

	assert.Equal(t, CurrentVersion, doc.Version)
	assert.Equal(t, "SAT01", doc.Project.ShortID)
	assert.Equal(t, "1", doc.Root.Code)
	assert.Equal(t, 180.0, doc.Root.TotalCost)

	design := doc.Root.Children[0]
	assert.Equal(t, "1.1", design.Code)
	assert.Empty(t, design.Start, "inherited dates are not written as explicit")
	assert.Equal(t, "2024-01-01", design.EffectiveStart)
	assert.Equal(t, "2024-01-20", design.EffectiveEnd)
	assert.Equal(t, "1.1.2", design.Children[1].Code)
	assert.Equal(t, "2024-01-11", design.Children[1].Start)
}

func TestRoundTrip_AllFormats(t *testing.T) {
	for _, format := range Formats {
		t.Run(string(format), func(t *testing.T) {
			root := sampleTree()
			proj := testutil.NewTestProject("Satellite", testutil.WithProjectID(root.ProjectID))

			var buf bytes.Buffer
			require.NoError(t, Encode(format, &buf, FromTree(proj, root)))

			doc, err := Decode(format, &buf)
			require.NoError(t, err)
			require.Empty(t, Validate(doc))

			loaded, err := ToTree(doc, root.ProjectID, testutil.FixedNow)
			require.NoError(t, err)
			rollup.ProcessCompleteNode(loaded)

			assert.Equal(t, root, loaded)
		})
	}
}
