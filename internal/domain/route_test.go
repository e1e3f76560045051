package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func lomeKara() (Route, StopList) {
	route := Route{
		ID:              1,
		DepartureCityID: 10,
		DepartureCity:   "Lomé",
		ArrivalCityID:   30,
		ArrivalCity:     "Kara",
		Price:           decimal.RequireFromString("5000"),
		Capacity:        50,
		Active:          true,
	}
	stops, _ := NewStopList([]Stop{
		{ID: 103, RouteID: 1, CityID: 30, CityName: "Kara", Sequence: 2, SegmentPrice: price("2000")},
		{ID: 101, RouteID: 1, CityID: 10, CityName: "Lomé", Sequence: 0, SegmentPrice: price("0")},
		{ID: 102, RouteID: 1, CityID: 20, CityName: "Kpalimé", Sequence: 1, SegmentPrice: price("1500")},
	})
	return route, stops
}

func TestNewStopList_SortsBySequence(t *testing.T) {
	_, stops := lomeKara()

	require.Equal(t, 3, stops.Len())
	assert.Equal(t, int64(101), stops.At(0).ID)
	assert.Equal(t, int64(102), stops.At(1).ID)
	assert.Equal(t, int64(103), stops.At(2).ID)
}

func TestNewStopList_RejectsDuplicateSequence(t *testing.T) {
	_, err := NewStopList([]Stop{
		{ID: 1, CityID: 1, Sequence: 0},
		{ID: 2, CityID: 2, Sequence: 0},
	})
	require.ErrorIs(t, err, ErrDuplicateSequence)
}

func TestStopList_StopsReturnsCopy(t *testing.T) {
	_, stops := lomeKara()

	got := stops.Stops()
	got[0].CityName = "changed"

	assert.Equal(t, "Lomé", stops.At(0).CityName)
}

func TestSegmentPrice(t *testing.T) {
	route, stops := lomeKara()
	lome, kpalime, kara := stops.At(0), stops.At(1), stops.At(2)

	tests := []struct {
		name        string
		origin      *Stop
		destination *Stop
		want        string
	}{
		{"whole route", nil, nil, "5000"},
		{"only origin", &lome, nil, "5000"},
		{"first segment", &lome, &kpalime, "0"},
		{"second segment", &kpalime, &kara, "1500"},
		{"full stop range", &lome, &kara, "1500"},
		{"reversed", &kara, &lome, "5000"},
		{"degenerate", &kpalime, &kpalime, "5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SegmentPrice(route, stops, tt.origin, tt.destination)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestSegmentPrice_UnpricedStopFallsBackToFlatPrice(t *testing.T) {
	route := Route{Price: decimal.RequireFromString("4000")}
	stops, err := NewStopList([]Stop{
		{ID: 1, CityID: 1, Sequence: 0},
		{ID: 2, CityID: 2, Sequence: 1, SegmentPrice: price("1500")},
		{ID: 3, CityID: 3, Sequence: 2, SegmentPrice: price("2000")},
	})
	require.NoError(t, err)

	origin, destination := stops.At(0), stops.At(2)
	got := SegmentPrice(route, stops, &origin, &destination)

	assert.True(t, route.Price.Equal(got))
}

func TestSegmentPrice_StopFromAnotherRoute(t *testing.T) {
	route, stops := lomeKara()
	foreign := Stop{ID: 999, Sequence: 0}
	kara := stops.At(2)

	got := SegmentPrice(route, stops, &foreign, &kara)

	assert.True(t, route.Price.Equal(got))
}

func TestSegmentPrice_AdjacentPairsSumToRange(t *testing.T) {
	route := Route{Price: decimal.RequireFromString("9999")}
	stops, err := NewStopList([]Stop{
		{ID: 1, CityID: 1, Sequence: 0, SegmentPrice: price("100.10")},
		{ID: 2, CityID: 2, Sequence: 1, SegmentPrice: price("200.20")},
		{ID: 3, CityID: 3, Sequence: 2, SegmentPrice: price("300.30")},
		{ID: 4, CityID: 4, Sequence: 3, SegmentPrice: price("400.40")},
	})
	require.NoError(t, err)

	sum := decimal.Zero
	for i := 0; i+1 < stops.Len(); i++ {
		o, d := stops.At(i), stops.At(i+1)
		sum = sum.Add(SegmentPrice(route, stops, &o, &d))
	}

	first, last := stops.At(0), stops.At(stops.Len()-1)
	whole := SegmentPrice(route, stops, &first, &last)

	assert.True(t, whole.Equal(sum), "sum %s whole %s", sum, whole)
	assert.Equal(t, "600.6", whole.String())
}

func TestRouteValidate(t *testing.T) {
	base := Route{
		DepartureCityID: 1,
		ArrivalCityID:   2,
		Capacity:        50,
		Price:           decimal.RequireFromString("3000"),
		BusType:         BusStandard,
	}
	require.NoError(t, base.Validate())

	same := base
	same.ArrivalCityID = 1
	assert.ErrorIs(t, same.Validate(), ErrInvalidRoute)

	tooBig := base
	tooBig.Capacity = 101
	assert.ErrorIs(t, tooBig.Validate(), ErrInvalidRoute)

	empty := base
	empty.Capacity = 0
	assert.ErrorIs(t, empty.Validate(), ErrInvalidRoute)

	negative := base
	negative.Price = decimal.RequireFromString("-1")
	assert.ErrorIs(t, negative.Validate(), ErrInvalidRoute)
}

func TestValidateStops(t *testing.T) {
	assert.NoError(t, ValidateStops([]Stop{{CityID: 1, Sequence: 0}, {CityID: 2, Sequence: 5}}))
	assert.ErrorIs(t, ValidateStops([]Stop{{CityID: 1, Sequence: 1}, {CityID: 2, Sequence: 1}}), ErrDuplicateSequence)
	assert.ErrorIs(t, ValidateStops([]Stop{{CityID: 0, Sequence: 1}}), ErrInvalidRoute)
}
