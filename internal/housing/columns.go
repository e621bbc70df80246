// Package housing names the columns of the housing dataset and the columns
// the pipeline attaches to it.
package housing

import "housingprep/internal/dataset"

const (
	Longitude        = "longitude"
	Latitude         = "latitude"
	HousingMedianAge = "housing_median_age"
	TotalRooms       = "total_rooms"
	TotalBedrooms    = "total_bedrooms"
	Population       = "population"
	Households       = "households"
	MedianIncome     = "median_income"
	MedianHouseValue = "median_house_value"
	OceanProximity   = "ocean_proximity"

	RoomsPerHousehold      = "rooms_per_household"
	PopulationPerHousehold = "population_per_household"
	BedroomsPerRoom        = "bedrooms_per_room"
	OceanProximityIndex    = "ocean_proximity_index"
	AvgPriceByAge          = "avg_price_by_age"
)

// InputSchema is the schema every loader produces.
func InputSchema() dataset.Schema {
	return dataset.MustSchema(
		dataset.Field{Name: Longitude, Type: dataset.Float64},
		dataset.Field{Name: Latitude, Type: dataset.Float64},
		dataset.Field{Name: HousingMedianAge, Type: dataset.Float64},
		dataset.Field{Name: TotalRooms, Type: dataset.Float64},
		dataset.Field{Name: TotalBedrooms, Type: dataset.Float64},
		dataset.Field{Name: Population, Type: dataset.Float64},
		dataset.Field{Name: Households, Type: dataset.Float64},
		dataset.Field{Name: MedianIncome, Type: dataset.Float64},
		dataset.Field{Name: MedianHouseValue, Type: dataset.Float64},
		dataset.Field{Name: OceanProximity, Type: dataset.String},
	)
}

// DefaultOutlierColumns is the default filtering order.
func DefaultOutlierColumns() []string {
	return []string{
		MedianIncome,
		HousingMedianAge,
		TotalRooms,
		TotalBedrooms,
		Population,
		Households,
		MedianHouseValue,
	}
}

// DerivedColumns are the ratio features attached after outlier filtering.
func DerivedColumns() []string {
	return []string{RoomsPerHousehold, PopulationPerHousehold, BedroomsPerRoom}
}

// OutputColumns lists the persisted columns in file order for the default
// configuration.
func OutputColumns() []string {
	cols := append(InputSchema().Names(), DerivedColumns()...)
	return append(cols, OceanProximityIndex, AvgPriceByAge)
}
