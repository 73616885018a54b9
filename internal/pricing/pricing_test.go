package pricing

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAllocate(t *testing.T) {
	table := DefaultTable()

	cases := []struct {
		party   int
		outcome Outcome
		tier    string
	}{
		{1, OutcomeTier, "Couple's Nest"},
		{2, OutcomeTier, "Couple's Nest"},
		{3, OutcomeTier, "Mountain View Suite"},
		{4, OutcomeTier, "Mountain View Suite"},
		{5, OutcomeTier, "Group Lodge"},
		{6, OutcomeTier, "Group Lodge"},
		{7, OutcomeCustom, ""},
		{40, OutcomeCustom, ""},
		{0, OutcomeInvalid, ""},
		{-3, OutcomeInvalid, ""},
	}

	for _, tc := range cases {
		got := table.Allocate(tc.party)
		assert.Equal(t, tc.outcome, got.Outcome, "party of %d", tc.party)
		assert.Equal(t, tc.tier, got.Tier.Name, "party of %d", tc.party)
	}
}

func TestAllocateInput_NonNumeric(t *testing.T) {
	table := DefaultTable()

	assert.Equal(t, OutcomeInvalid, table.AllocateInput("").Outcome)
	assert.Equal(t, OutcomeInvalid, table.AllocateInput("two").Outcome)
	assert.Equal(t, OutcomeTier, table.AllocateInput(" 3 ").Outcome)
	assert.ErrorIs(t, table.AllocateInput("9").Err(), ErrCustomArrangement)
	assert.ErrorIs(t, table.AllocateInput("x").Err(), ErrInvalidPartySize)
}

func TestComputeStay(t *testing.T) {
	stay := ComputeStay(date(2024, time.June, 1), date(2024, time.June, 4))
	assert.Equal(t, 3, stay.Nights)
	assert.True(t, stay.Valid)

	same := ComputeStay(date(2024, time.June, 1), date(2024, time.June, 1))
	assert.Equal(t, 0, same.Nights)
	assert.False(t, same.Valid)

	backwards := ComputeStay(date(2024, time.June, 4), date(2024, time.June, 1))
	assert.Equal(t, -3, backwards.Nights)
	assert.False(t, backwards.Valid)

	// Month and leap-day boundaries.
	assert.Equal(t, 2, ComputeStay(date(2024, time.February, 28), date(2024, time.March, 1)).Nights)
	assert.Equal(t, 1, ComputeStay(date(2024, time.December, 31), date(2025, time.January, 1)).Nights)
}

func TestComputeStay_LongRanges(t *testing.T) {
	start := date(2024, time.January, 1)
	for _, d := range []int{1, 30, 365, 10000, 106752, 200000} {
		stay := ComputeStay(start, start.AddDate(0, 0, d))
		assert.Equal(t, d, stay.Nights, "nights for %d days", d)
		assert.True(t, stay.Valid)
	}

	stay := ComputeStay(start, date(2400, time.January, 1))
	assert.Equal(t, 137331, stay.Nights)
	assert.Equal(t, int64(137331*6800), stay.Total(Tier{Name: "Couple's Nest", Capacity: 2, PricePerDay: 6800}))
}

func TestComputeStay_IgnoresTimeOfDay(t *testing.T) {
	in := time.Date(2024, time.June, 1, 23, 0, 0, 0, time.UTC)
	out := time.Date(2024, time.June, 2, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, Stay{Nights: 1, Valid: true}, ComputeStay(in, out))
}

func TestQuote(t *testing.T) {
	table := DefaultTable()

	q, err := table.Quote(5, date(2024, time.June, 1), date(2024, time.June, 4))
	require.NoError(t, err)
	assert.Equal(t, "Group Lodge", q.Tier)
	assert.Equal(t, 3, q.Nights)
	assert.Equal(t, int64(3*22000), q.TotalAmount)

	again, err := table.Quote(5, date(2024, time.June, 1), date(2024, time.June, 4))
	require.NoError(t, err)
	assert.Equal(t, q, again)

	_, err = table.Quote(2, date(2024, time.June, 4), date(2024, time.June, 4))
	assert.ErrorIs(t, err, ErrInvalidStay)

	_, err = table.Quote(8, date(2024, time.June, 1), date(2024, time.June, 4))
	assert.ErrorIs(t, err, ErrCustomArrangement)
}

func TestLookup_StripsLabelDecoration(t *testing.T) {
	table := DefaultTable()

	for _, tier := range table.Tiers {
		got, err := table.Lookup(tier.Label())
		require.NoError(t, err)
		assert.Equal(t, tier, got)
	}

	got, err := table.Lookup("Couple's Nest")
	require.NoError(t, err)
	assert.Equal(t, int64(6800), got.PricePerDay)

	_, err = table.Lookup("Penthouse (10 People - ₹90000/Day)")
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pricing.yaml")
	content := `
tiers:
  - name: Bunk
    capacity: 1
    price_per_day: 900
  - name: Family Room
    capacity: 5
    price_per_day: 12000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	table, err := LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, 5, table.MaxCapacity())
	assert.Equal(t, "Family Room", table.Allocate(2).Tier.Name)

	def, err := LoadTable("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTable(), def)
}

func TestLoadTable_RejectsUnorderedCapacities(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pricing.yaml")
	content := `
tiers:
  - {name: Big, capacity: 6, price_per_day: 100}
  - {name: Small, capacity: 2, price_per_day: 50}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := LoadTable(path)
	assert.Error(t, err)
}
