package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "regpulse/internal/errors"
	"regpulse/pkg/contracts/domain"
)

func TestFilter(t *testing.T) {
	ds := mustDataset(t, sampleCSV)

	tests := []struct {
		name string
		sel  domain.FilterSelection
		want int
	}{
		{
			name: "zero selection matches everything",
			sel:  domain.FilterSelection{},
			want: 4,
		},
		{
			name: "by college",
			sel:  domain.FilterSelection{Colleges: []string{"Alpha College"}},
			want: 2,
		},
		{
			name: "by year",
			sel:  domain.FilterSelection{Years: []string{"2"}},
			want: 2,
		},
		{
			name: "by date range inclusive",
			sel:  domain.FilterSelection{From: "2024-01-15", To: "2024-01-17"},
			want: 3,
		},
		{
			name: "single endpoint collapses to one day",
			sel:  domain.FilterSelection{From: "2024-01-15"},
			want: 2,
		},
		{
			name: "conjunction of all three",
			sel: domain.FilterSelection{
				Colleges: []string{"Alpha College"},
				Years:    []string{"2"},
				From:     "2024-01-15",
				To:       "2024-01-15",
			},
			want: 1,
		},
		{
			name: "nothing matches",
			sel:  domain.FilterSelection{Colleges: []string{"Delta College"}},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched, err := Filter(ds, tt.sel)
			require.NoError(t, err)
			assert.Len(t, matched, tt.want)
		})
	}
}

func TestFilter_DoesNotMutateDataset(t *testing.T) {
	ds := mustDataset(t, sampleCSV)
	before := len(ds.Records)

	_, err := Filter(ds, domain.FilterSelection{Colleges: []string{"Alpha College"}})
	require.NoError(t, err)

	assert.Len(t, ds.Records, before)
}

func TestFilter_Idempotent(t *testing.T) {
	ds := mustDataset(t, sampleCSV)
	sel := domain.FilterSelection{Years: []string{"2"}}

	first, err := Filter(ds, sel)
	require.NoError(t, err)
	second, err := Filter(ds, sel)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFilter_InvalidDate(t *testing.T) {
	ds := mustDataset(t, sampleCSV)

	_, err := Filter(ds, domain.FilterSelection{From: "15/01/2024"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestFilterSelection_CacheKey(t *testing.T) {
	a := domain.FilterSelection{Colleges: []string{"B", "A"}, Years: []string{"2", "1"}}
	b := domain.FilterSelection{Colleges: []string{"A", "B"}, Years: []string{"1", "2"}}
	c := domain.FilterSelection{Colleges: []string{"A"}}

	assert.Equal(t, a.CacheKey(), b.CacheKey())
	assert.NotEqual(t, a.CacheKey(), c.CacheKey())
}
