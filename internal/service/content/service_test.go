package content

import (
	"context"
	"testing"

	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderDropsRawHTML(t *testing.T) {
	s := New(nil)

	html, err := s.Render("# Line-up\n\n<script>alert(1)</script>\n\nDoors at **7pm**.")
	require.NoError(t, err)

	assert.Contains(t, html, `<h1 id="line-up">Line-up</h1>`)
	assert.Contains(t, html, "<strong>7pm</strong>")
	assert.NotContains(t, html, "<script>")
}

func TestRenderGFMTable(t *testing.T) {
	s := New(nil)

	html, err := s.Render("| a | b |\n|---|---|\n| 1 | 2 |\n")
	require.NoError(t, err)
	assert.Contains(t, html, "<table>")
}

func TestPrepare(t *testing.T) {
	s := New(nil)

	p := domain.Page{Title: "  Summer Festival Recap ", Kind: domain.PageBlog, BodyMarkdown: "Hello"}
	require.NoError(t, s.prepare(&p))
	assert.Equal(t, "Summer Festival Recap", p.Title)
	assert.Equal(t, "summer-festival-recap", p.Slug)
	assert.Equal(t, "<p>Hello</p>\n", p.BodyHTML)

	for i, bad := range []domain.Page{
		{Kind: domain.PageBlog},
		{Title: "x", Kind: "wiki"},
		{Title: "???", Kind: domain.PagePage},
	} {
		var ve *domain.ValidationError
		assert.ErrorAs(t, s.prepare(&bad), &ve, "case %d", i)
	}
}

func TestListRejectsUnknownKind(t *testing.T) {
	s := New(nil)

	_, err := s.List(context.Background(), domain.PageFilter{Kind: "wiki"}, false)

	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	s := New(nil)

	err := s.SetStatus(context.Background(), 1, "live")

	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}
