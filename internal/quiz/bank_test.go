package quiz_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/codelab/internal/db/dbtest"
	"github.com/mind-engage/codelab/internal/quiz"
)

const questionsTOML = `
[[question]]
filename = "vis_04_01_01"
prompt = "What is the output of the function?"
free_response = true
choices = ["Does not compile", "5", "15"]

[[question]]
filename = "vis_04_01_02"
prompt = "Which line moves s?"
choices = ["line 2", "line 3"]
`

func TestParseTOMLImportAndLoad(t *testing.T) {
	b, err := quiz.ParseTOML(strings.NewReader(questionsTOML))
	require.NoError(t, err)
	require.Equal(t, 2, b.Len())
	assert.Equal(t, 3, b.ChoiceCount(0))

	h := dbtest.Open(t)
	ctx := context.Background()
	require.NoError(t, quiz.Import(ctx, h, b))
	// importing again replaces instead of duplicating
	require.NoError(t, quiz.Import(ctx, h, b))

	loaded, err := quiz.LoadBank(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, b.Questions(), loaded.Questions())

	q, ok := loaded.Question(0)
	require.True(t, ok)
	assert.True(t, q.ContainsFreeResponse)
	assert.Equal(t, quiz.Choice{ID: 2, Text: "15"}, q.Choices[2])
}

func TestParseTOMLRejectsBadFiles(t *testing.T) {
	_, err := quiz.ParseTOML(strings.NewReader(`[[question]]
prompt = "x"
colour = "red"
`))
	assert.Error(t, err, "unknown keys")

	_, err = quiz.ParseTOML(strings.NewReader(`[[question]]
filename = "f"
`))
	assert.Error(t, err, "missing prompt")

	_, err = quiz.ParseTOML(strings.NewReader(`[[question]]
id = 4
prompt = "gap"
`))
	assert.Error(t, err, "ids must start at 0")
}

func TestNewBankRejectsChoiceGaps(t *testing.T) {
	_, err := quiz.NewBank([]quiz.Question{{ID: 0, Prompt: "p", Choices: []quiz.Choice{{0, "a"}, {2, "c"}}}})
	assert.Error(t, err)
}

func TestEmptyBank(t *testing.T) {
	b, err := quiz.LoadBank(context.Background(), dbtest.Open(t))
	require.NoError(t, err)
	assert.Zero(t, b.Len())
}
