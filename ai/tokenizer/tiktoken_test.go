package tokenizer

import (
	"context"
	"testing"

	"github.com/pkoukk/tiktoken-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTiktokenWithCL100KBase(t *testing.T) {
	t.Run("creates tiktoken with CL100K_BASE encoding", func(t *testing.T) {
		tk := NewTiktokenWithCL100KBase()

		require.NotNil(t, tk)
		assert.Equal(t, tiktoken.MODEL_CL100K_BASE, tk.encodingName)
		assert.NotNil(t, tk.encoding)
	})

	t.Run("multiple calls create independent instances", func(t *testing.T) {
		tk1 := NewTiktokenWithCL100KBase()
		tk2 := NewTiktokenWithCL100KBase()

		assert.NotSame(t, tk1, tk2)
	})
}

func TestNewTiktoken(t *testing.T) {
	t.Run("valid encoding name", func(t *testing.T) {
		tk, err := NewTiktoken(tiktoken.MODEL_CL100K_BASE)

		require.NoError(t, err)
		require.NotNil(t, tk)
		assert.Equal(t, tiktoken.MODEL_CL100K_BASE, tk.encodingName)
	})

	t.Run("invalid encoding name", func(t *testing.T) {
		tk, err := NewTiktoken("invalid_encoding")

		require.Error(t, err)
		assert.Nil(t, tk)
	})

	t.Run("empty encoding name", func(t *testing.T) {
		tk, err := NewTiktoken("")

		require.Error(t, err)
		assert.Nil(t, tk)
	})
}

func TestTiktoken_EstimateText(t *testing.T) {
	ctx := context.Background()
	tk := NewTiktokenWithCL100KBase()

	t.Run("simple text", func(t *testing.T) {
		count, err := tk.EstimateText(ctx, "hello world")

		require.NoError(t, err)
		assert.Greater(t, count, 0)
		assert.LessOrEqual(t, count, 10)
	})

	t.Run("empty text", func(t *testing.T) {
		count, err := tk.EstimateText(ctx, "")

		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("long text", func(t *testing.T) {
		longText := "This is a long sentence that will be tokenized into multiple tokens. " +
			"It contains many words and should result in a higher token count."

		count, err := tk.EstimateText(ctx, longText)

		require.NoError(t, err)
		assert.Greater(t, count, 10)
	})

	t.Run("unicode text", func(t *testing.T) {
		count, err := tk.EstimateText(ctx, "안녕하세요 Hello World")

		require.NoError(t, err)
		assert.Greater(t, count, 0)
	})
}

func TestTiktoken_Encode(t *testing.T) {
	ctx := context.Background()
	tk := NewTiktokenWithCL100KBase()

	t.Run("simple text", func(t *testing.T) {
		tokens, err := tk.Encode(ctx, "hello world")

		require.NoError(t, err)
		assert.Greater(t, len(tokens), 0)
		assert.LessOrEqual(t, len(tokens), 10)
	})

	t.Run("empty text", func(t *testing.T) {
		tokens, err := tk.Encode(ctx, "")

		require.NoError(t, err)
		assert.Empty(t, tokens)
	})

	t.Run("consistent encoding", func(t *testing.T) {
		text := "consistent test"

		tokens1, err1 := tk.Encode(ctx, text)
		tokens2, err2 := tk.Encode(ctx, text)

		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, tokens1, tokens2)
	})
}

func TestTiktoken_Decode(t *testing.T) {
	ctx := context.Background()
	tk := NewTiktokenWithCL100KBase()

	t.Run("round trip encoding and decoding", func(t *testing.T) {
		originalTexts := []string{
			"hello world",
			"This is a test",
			"Special chars: !@#$",
		}

		for _, original := range originalTexts {
			tokens, err := tk.Encode(ctx, original)
			require.NoError(t, err)

			decoded, err := tk.Decode(ctx, tokens)
			require.NoError(t, err)

			assert.Equal(t, original, decoded, "round trip failed for: "+original)
		}
	})

	t.Run("empty token slice", func(t *testing.T) {
		text, err := tk.Decode(ctx, []int{})

		require.NoError(t, err)
		assert.Empty(t, text)
	})
}

func TestTiktoken_InterfaceCompliance(t *testing.T) {
	tk := NewTiktokenWithCL100KBase()

	var _ TextEstimator = tk
	var _ Tokenizer = tk
	var _ Encoder = tk
	var _ Decoder = tk
}

func BenchmarkTiktoken_EstimateText(b *testing.B) {
	ctx := context.Background()
	tk := NewTiktokenWithCL100KBase()
	text := "This is a test sentence for benchmarking."

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = tk.EstimateText(ctx, text)
	}
}
