package preproc_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/markkurossi/graphsc/preproc"
)

func TestIdentity(t *testing.T) {
	require.True(t, cmp.Equal([]int{0, 1, 2, 3}, preproc.Identity(4)))
}

func TestInvertRoundTrip(t *testing.T) {
	p := []int{2, 0, 3, 1}
	inv := preproc.Invert(p)
	require.Empty(t, cmp.Diff(p, preproc.Invert(inv)))
	for i, w := range p {
		require.Equal(t, i, inv[w])
	}
}

func TestComposeWithIdentity(t *testing.T) {
	p := []int{2, 0, 3, 1}
	id := preproc.Identity(4)
	require.Empty(t, cmp.Diff(p, preproc.Compose(p, id)))
	require.Empty(t, cmp.Diff(p, preproc.Compose(id, p)))
}

func TestComposeAssociativity(t *testing.T) {
	p := []int{1, 2, 0}
	q := []int{2, 0, 1}
	r := []int{0, 2, 1}
	left := preproc.Compose(preproc.Compose(p, q), r)
	right := preproc.Compose(p, preproc.Compose(q, r))
	require.Empty(t, cmp.Diff(left, right))
}

func TestApplyAndInvertAreInverses(t *testing.T) {
	p := []int{2, 0, 3, 1}
	v := []string{"a", "b", "c", "d"}
	shuffled := preproc.Apply(p, v)
	back := preproc.Apply(preproc.Invert(p), shuffled)
	require.Equal(t, v, back)
}
