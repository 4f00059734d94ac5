package generator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/domain"
)

func file(path, content string) domain.Artifact {
	return domain.Artifact{Path: path, Content: content}
}

func TestTester_Run(t *testing.T) {
	goodHTML := file("t/game-1/index.html", "<html><head><title>x</title></head><body></body></html>")
	goodConfig := file("t/game-1/quiz_config.json", `{"title":"x","questions":[]}`)

	tests := []struct {
		name   string
		files  []domain.Artifact
		passed []bool
	}{
		{"all good", []domain.Artifact{goodHTML, goodConfig}, []bool{true, true, true}},
		{"no files", nil, []bool{false, false, false}},
		{"missing config", []domain.Artifact{goodHTML}, []bool{false, true, false}},
		{"html without body", []domain.Artifact{file("a/index.html", "<title>x</title>"), goodConfig}, []bool{true, false, true}},
		{"config not json", []domain.Artifact{goodHTML, file("a/quiz_config.json", "{")}, []bool{true, true, false}},
		{"config title not string", []domain.Artifact{goodHTML, file("a/quiz_config.json", `{"title":3}`)}, []bool{true, true, false}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			results := Tester{}.Run(tc.files)
			require.Len(t, results, 3)
			assert.Equal(t, CaseFilePresence, results[0].CaseID)
			assert.Equal(t, CaseHTMLContent, results[1].CaseID)
			assert.Equal(t, CaseConfig, results[2].CaseID)
			for i, want := range tc.passed {
				assert.Equal(t, want, results[i].Passed, results[i].Message)
			}
		})
	}
}

func TestTester_Messages(t *testing.T) {
	results := Tester{}.Run(nil)
	assert.Equal(t, "HTML and config files exist: Failed", results[0].Message)
}

func TestSummarize(t *testing.T) {
	pass := domain.TestResult{Passed: true}
	fail := domain.TestResult{}

	s := Summarize([]domain.TestResult{pass, pass, pass})
	assert.True(t, s.Passed)
	assert.Equal(t, "All 3 tests passed.", s.Message)

	s = Summarize([]domain.TestResult{pass, fail, fail})
	assert.False(t, s.Passed)
	assert.Equal(t, "2 out of 3 tests failed.", s.Message)
}

func TestLoadLatestDeliverable(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	files, err := LoadLatestDeliverable(ctx, store, "task-1")
	require.NoError(t, err)
	assert.Nil(t, files)

	require.NoError(t, store.Write(ctx, "task-1/workspace/README.md", []byte("readme")))
	require.NoError(t, store.Write(ctx, "task-1/game-1700000000000/index.html", []byte("old")))
	require.NoError(t, store.Write(ctx, "task-1/game-1700000005000/index.html", []byte("<title>t</title><body>")))
	require.NoError(t, store.Write(ctx, "task-1/game-1700000005000/quiz_config.json", []byte(`{"title":"t"}`)))

	files, err = LoadLatestDeliverable(ctx, store, "task-1")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "index.html", files[0].Name)
	assert.Equal(t, constants.ArtifactConfig, files[1].Kind)

	assert.True(t, Summarize(Tester{}.Run(files)).Passed)
}

func TestGenerate_OutputPassesTester(t *testing.T) {
	for _, kind := range []constants.GameKind{constants.GameKindQuiz, constants.GameKindMatching, constants.GameKindSorting} {
		t.Run(string(kind), func(t *testing.T) {
			s := newDefaultStage(t, newStore(t), nil)
			d, err := s.Generate(context.Background(), testProject(kind), kind, Requirements{}, Customizations{})
			require.NoError(t, err)
			summary := Summarize(Tester{}.Run(d.Artifacts))
			assert.True(t, summary.Passed, summary.Message)
		})
	}
}
