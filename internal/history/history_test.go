package history

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/roomstyler/internal/images"
	"github.com/lehigh-university-libraries/roomstyler/internal/images/imagestest"
)

func refs(t *testing.T, n int) []*images.Ref {
	t.Helper()
	out := make([]*images.Ref, n)
	for i := range out {
		out[i] = imagestest.Ref(t, uint8(i))
	}
	return out
}

func TestEmptyNavigator(t *testing.T) {
	for name, n := range map[string]*Navigator{"New": New(), "zero value": {}} {
		t.Run(name, func(t *testing.T) {
			_, ok := n.Current()
			assert.False(t, ok)
			assert.False(t, n.Undo())
			assert.False(t, n.Redo())
			assert.False(t, n.IsEditing())
			assert.Equal(t, -1, n.Index())
		})
	}
}

func TestRecordNewRoot(t *testing.T) {
	imgs := refs(t, 3)
	n := New()
	require.NoError(t, n.RecordNewRoot(imgs[0]))
	require.NoError(t, n.SelectForFurtherEditing(imgs[1]))

	require.NoError(t, n.RecordNewRoot(imgs[2]))
	assert.Equal(t, 1, n.Len())
	assert.Equal(t, 0, n.Index())
	cur, ok := n.Current()
	require.True(t, ok)
	assert.Same(t, imgs[2], cur)
	assert.False(t, n.IsEditing())

	assert.ErrorIs(t, n.RecordNewRoot(nil), ErrNilImage)
	assert.Equal(t, 1, n.Len())
}

func TestUndoRedo(t *testing.T) {
	imgs := refs(t, 3)
	n := New()
	require.NoError(t, n.RecordNewRoot(imgs[0]))
	require.NoError(t, n.SelectForFurtherEditing(imgs[1]))
	require.NoError(t, n.SelectForFurtherEditing(imgs[2]))

	assert.False(t, n.Redo(), "redo at last index is a no-op")
	assert.Equal(t, 2, n.Index())

	assert.True(t, n.Undo())
	assert.True(t, n.Undo())
	assert.False(t, n.Undo(), "undo at index 0 is a no-op")
	assert.Equal(t, 0, n.Index())
	assert.False(t, n.IsEditing())

	assert.True(t, n.Redo())
	assert.True(t, n.IsEditing())
	cur, _ := n.Current()
	assert.Same(t, imgs[1], cur)
}

func TestSelectForFurtherEditingTruncatesFuture(t *testing.T) {
	imgs := refs(t, 4)
	n := New()
	require.NoError(t, n.RecordNewRoot(imgs[0]))
	require.NoError(t, n.SelectForFurtherEditing(imgs[1]))
	require.NoError(t, n.SelectForFurtherEditing(imgs[2]))
	require.True(t, n.Undo())
	require.True(t, n.Undo())

	before := n.Entries()
	require.NoError(t, n.SelectForFurtherEditing(imgs[3]))

	assert.Equal(t, 2, n.Len())
	assert.Equal(t, 1, n.Index())
	assert.False(t, n.CanRedo())
	assert.False(t, n.Redo())

	entries := n.Entries()
	assert.Same(t, imgs[0], entries[0].Image)
	assert.Same(t, imgs[3], entries[1].Image)
	assert.Len(t, before, 3, "earlier snapshots are not affected by truncation")
	assert.Same(t, imgs[2], before[2].Image)

	assert.ErrorIs(t, n.SelectForFurtherEditing(nil), ErrNilImage)
	assert.Equal(t, 2, n.Len())
}

func TestSelectForFurtherEditingOnEmpty(t *testing.T) {
	img := imagestest.Ref(t, 1)
	n := New()
	require.NoError(t, n.SelectForFurtherEditing(img))
	assert.Equal(t, 1, n.Len())
	assert.Equal(t, 0, n.Index())
}

func TestRandomWalkKeepsIndexInRange(t *testing.T) {
	imgs := refs(t, 6)
	rng := rand.New(rand.NewSource(42))
	n := New()
	require.NoError(t, n.RecordNewRoot(imgs[0]))

	for step := 0; step < 500; step++ {
		switch rng.Intn(3) {
		case 0:
			wantMove := n.Index() > 0
			assert.Equal(t, wantMove, n.Undo())
		case 1:
			wantMove := n.Index() < n.Len()-1
			assert.Equal(t, wantMove, n.Redo())
		default:
			oldIndex := n.Index()
			require.NoError(t, n.SelectForFurtherEditing(imgs[rng.Intn(len(imgs))]))
			assert.Equal(t, oldIndex+2, n.Len())
		}

		require.GreaterOrEqual(t, n.Index(), 0)
		require.Less(t, n.Index(), n.Len())
		assert.Equal(t, n.Index() > 0, n.CanUndo())
		assert.Equal(t, n.Index() < n.Len()-1, n.CanRedo())
	}
}
