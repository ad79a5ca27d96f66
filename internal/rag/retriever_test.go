package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQueryEmbedder returns a canned vector or error.
type fakeQueryEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeQueryEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

// fakeVectorStore records search arguments and returns canned results.
type fakeVectorStore struct {
	results     []Result
	err         error
	lastVideoID string
	lastTopK    int
}

func (f *fakeVectorStore) Upsert(context.Context, []Point) error { return nil }

func (f *fakeVectorStore) Search(_ context.Context, _ []float32, videoID string, topK int) ([]Result, error) {
	f.lastVideoID = videoID
	f.lastTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	if topK < len(f.results) {
		return f.results[:topK], nil
	}
	return f.results, nil
}

func (f *fakeVectorStore) Delete(context.Context, []string) error { return nil }
func (f *fakeVectorStore) Close() error                           { return nil }

func TestSearch_RankedResultsWithLinks(t *testing.T) {
	store := &fakeVectorStore{results: []Result{
		{ChunkID: "v1_chunk_0_0", VideoID: "v1", Text: "first", StartSeconds: 0, Similarity: 0.91},
		{ChunkID: "v1_chunk_2_360", VideoID: "v1", Text: "second", StartSeconds: 365, Similarity: 0.84},
		{ChunkID: "v2_chunk_1_180", VideoID: "v2", Text: "third", StartSeconds: 181, Similarity: 0.70},
	}}
	r, err := NewRetriever(&fakeQueryEmbedder{vector: []float32{0.1, 0.2}}, store, 5)
	require.NoError(t, err)

	results, err := r.Search(context.Background(), "what is backpropagation", "", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Similarity, results[i-1].Similarity,
			"results must stay in descending similarity order")
	}

	assert.Equal(t, "6:05", results[1].Timestamp)
	assert.Equal(t, "https://youtube.com/watch?v=v1&t=365s", results[1].WatchURL)
	assert.Equal(t, "3:01", results[2].Timestamp)
}

func TestSearch_TopKTruncation(t *testing.T) {
	store := &fakeVectorStore{results: []Result{
		{VideoID: "v1", Similarity: 0.9},
		{VideoID: "v1", Similarity: 0.8},
		{VideoID: "v1", Similarity: 0.7},
	}}
	r, err := NewRetriever(&fakeQueryEmbedder{vector: []float32{1}}, store, 5)
	require.NoError(t, err)

	results, err := r.Search(context.Background(), "q", "", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 2, store.lastTopK)
}

func TestSearch_DefaultTopK(t *testing.T) {
	store := &fakeVectorStore{}
	r, err := NewRetriever(&fakeQueryEmbedder{vector: []float32{1}}, store, 4)
	require.NoError(t, err)

	_, err = r.Search(context.Background(), "q", "", 0)
	require.NoError(t, err)
	assert.Equal(t, 4, store.lastTopK)
}

func TestSearch_VideoFilterForwarded(t *testing.T) {
	store := &fakeVectorStore{}
	r, err := NewRetriever(&fakeQueryEmbedder{vector: []float32{1}}, store, 5)
	require.NoError(t, err)

	_, err = r.Search(context.Background(), "q", "dQw4w9WgXcQ", 3)
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", store.lastVideoID)
}

func TestSearch_NoMatchesIsNotAnError(t *testing.T) {
	r, err := NewRetriever(&fakeQueryEmbedder{vector: []float32{1}}, &fakeVectorStore{}, 5)
	require.NoError(t, err)

	results, err := r.Search(context.Background(), "q", "", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_EmbeddingFailureTagged(t *testing.T) {
	emb := &fakeQueryEmbedder{err: errors.New("connection refused")}
	r, err := NewRetriever(emb, &fakeVectorStore{}, 5)
	require.NoError(t, err)

	_, err = r.Search(context.Background(), "q", "", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
	assert.NotErrorIs(t, err, ErrStorageFailure)
}

func TestSearch_StorageFailureTagged(t *testing.T) {
	store := &fakeVectorStore{err: errors.New("grpc unavailable")}
	r, err := NewRetriever(&fakeQueryEmbedder{vector: []float32{1}}, store, 5)
	require.NoError(t, err)

	_, err = r.Search(context.Background(), "q", "", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.NotErrorIs(t, err, ErrEmbeddingUnavailable)
}

func TestDisplayTimestamp(t *testing.T) {
	assert.Equal(t, "0:00", DisplayTimestamp(0))
	assert.Equal(t, "1:05", DisplayTimestamp(65.9))
	assert.Equal(t, "12:34", DisplayTimestamp(754))
}
