package aggregation

import (
	"testing"

	"github.com/stretchr/testify/require"

	v1 "github.com/aevon-lab/fsevents/internal/api/v1"
)

func TestUnionBlocks(t *testing.T) {
	tests := []struct {
		name     string
		existing []v1.Block
		added    []v1.Block
		want     []v1.Block
	}{
		{name: "empty", want: nil},
		{
			name:  "disjoint stays sorted",
			added: []v1.Block{{Offset: 20, Size: 5}, {Offset: 0, Size: 5}},
			want:  []v1.Block{{Offset: 0, Size: 5}, {Offset: 20, Size: 5}},
		},
		{
			name:     "adjacent coalesce",
			existing: []v1.Block{{Offset: 0, Size: 5}},
			added:    []v1.Block{{Offset: 5, Size: 5}},
			want:     []v1.Block{{Offset: 0, Size: 10}},
		},
		{
			name:     "contained is absorbed",
			existing: []v1.Block{{Offset: 0, Size: 100}},
			added:    []v1.Block{{Offset: 10, Size: 5}},
			want:     []v1.Block{{Offset: 0, Size: 100}},
		},
		{
			name:     "bridge joins two",
			existing: []v1.Block{{Offset: 0, Size: 5}, {Offset: 10, Size: 5}},
			added:    []v1.Block{{Offset: 4, Size: 7}},
			want:     []v1.Block{{Offset: 0, Size: 15}},
		},
		{
			name:  "zero size ignored",
			added: []v1.Block{{Offset: 3, Size: 0}},
			want:  nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, UnionBlocks(tc.existing, tc.added...))
		})
	}
}

func TestTrimBlocks(t *testing.T) {
	blocks := []v1.Block{{Offset: 0, Size: 10}, {Offset: 20, Size: 10}, {Offset: 40, Size: 5}}

	require.Equal(t, []v1.Block{{Offset: 0, Size: 10}, {Offset: 20, Size: 5}}, TrimBlocks(blocks, 25))
	require.Empty(t, TrimBlocks(blocks, 0))
	require.Equal(t, blocks, TrimBlocks(blocks, 1000))
}
