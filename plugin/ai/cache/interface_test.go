package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingKey(t *testing.T) {
	key := EmbeddingKey("jina-embeddings-v3", "hello")
	assert.Equal(t, key, EmbeddingKey("jina-embeddings-v3", "hello"))
	assert.NotEqual(t, key, EmbeddingKey("jina-embeddings-v3", "hello!"))
	assert.NotEqual(t, key, EmbeddingKey("text-embedding-3-small", "hello"))
	assert.Contains(t, key, "embedding:jina-embeddings-v3:")
}

func TestVectorCodec(t *testing.T) {
	vector := []float32{0, 1.5, -2.25, 3.4028235e38}
	data := EncodeVector(vector)
	assert.Len(t, data, 16)

	decoded, err := DecodeVector(data)
	require.NoError(t, err)
	assert.Equal(t, vector, decoded)

	_, err = DecodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
