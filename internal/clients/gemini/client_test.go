package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestExtractTextFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "**Allocation** "},
				{Text: "looks concentrated."},
			}},
		}},
	}

	text, err := extractTextFromResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "**Allocation** looks concentrated.", text)
}

func TestExtractTextFromResponse_Empty(t *testing.T) {
	_, err := extractTextFromResponse(nil)
	assert.Error(t, err)

	_, err = extractTextFromResponse(&genai.GenerateContentResponse{})
	assert.Error(t, err)

	_, err = extractTextFromResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: ""}}}}},
	})
	assert.Error(t, err)
}

func TestOptions(t *testing.T) {
	c := &Client{model: DefaultModel}
	WithModel("")(c)
	assert.Equal(t, DefaultModel, c.Model())

	WithModel("gemini-2.5-flash-lite")(c)
	WithFallbackModels("gemini-2.5-flash")(c)
	assert.Equal(t, "gemini-2.5-flash-lite", c.Model())
	assert.Equal(t, []string{"gemini-2.5-flash"}, c.fallback)
}
