package memgraph

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitThenRenderIsCanonicalEmpty(t *testing.T) {
	dir := t.TempDir()
	s := New(nil)
	require.NoError(t, s.Init(context.Background(), 0, dir))

	view, err := s.Render(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "(empty graph)", view)
}

func TestWriteFailureRollsBackByteEquivalent(t *testing.T) {
	dir := t.TempDir()
	s := New(nil)
	require.NoError(t, s.Init(context.Background(), 0, dir))

	_, err := s.Write(context.Background(), `graph.add_node(id="a", label="Author")`)
	require.NoError(t, err)
	before, err := s.Render(context.Background())
	require.NoError(t, err)

	outcome, err := s.Write(context.Background(), `this is not valid starlark (((`)
	require.NoError(t, err)
	assert.False(t, outcome.Success)

	after, err := s.Render(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestWriteIncrementsSnapshotCounterByOne(t *testing.T) {
	dir := t.TempDir()
	s := New(nil)
	require.NoError(t, s.Init(context.Background(), 0, dir))

	_, err := s.Write(context.Background(), `graph.add_node(id="a", label="Author")`)
	require.NoError(t, err)
	assert.Equal(t, 1, s.snap.Count())

	entries, err := os.ReadDir(s.snap.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReadRequiresResultBinding(t *testing.T) {
	dir := t.TempDir()
	s := New(nil)
	require.NoError(t, s.Init(context.Background(), 0, dir))

	outcome, err := s.Read(context.Background(), `x = 1`)
	require.NoError(t, err)
	assert.False(t, outcome.Success)
}

func TestInsertionOrderPreservedOnRenderAndRead(t *testing.T) {
	dir := t.TempDir()
	s := New(nil)
	require.NoError(t, s.Init(context.Background(), 0, dir))

	_, err := s.Write(context.Background(), `
graph.add_node(id="author1", label="Author", attrs={"name": "J.K. Rowling"})
graph.add_node(id="book1", label="Book", attrs={"title": "Harry Potter and the Philosopher's Stone"})
graph.add_node(id="book2", label="Book", attrs={"title": "Harry Potter and the Chamber of Secrets"})
graph.add_edge(from_="author1", to="book1", type="WROTE", id="e1")
graph.add_edge(from_="author1", to="book2", type="WROTE", id="e2")
`)
	require.NoError(t, err)

	outcome, err := s.Read(context.Background(), `
titles = []
for e in graph.edges_from("author1"):
    titles.append(graph.node(e.to).attrs["title"])
result = titles
`)
	require.NoError(t, err)
	require.True(t, outcome.Success)
	titles, ok := outcome.Payload.([]any)
	require.True(t, ok)
	require.Len(t, titles, 2)
	assert.Equal(t, "Harry Potter and the Philosopher's Stone", titles[0])
	assert.Equal(t, "Harry Potter and the Chamber of Secrets", titles[1])
}
