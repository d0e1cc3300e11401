package models

import "time"

// ProductionRecord is one calendar month of measured production for a well.
// Records are immutable once imported; rates are daily averages for the
// month (bbl/d for liquids, Mcf/d for gas). Cumulative fields carry the
// official on-file totals when the import provided them.
type ProductionRecord struct {
	WellID    string    `bson:"well_id" json:"well_id"`
	Date      time.Time `bson:"production_date" json:"production_date"`
	OilRate   float64   `bson:"oil_rate" json:"oil_rate"`
	GasRate   float64   `bson:"gas_rate" json:"gas_rate"`
	WaterRate float64   `bson:"water_rate" json:"water_rate"`
	CumOil    *float64  `bson:"cum_oil,omitempty" json:"cum_oil,omitempty"`
	CumGas    *float64  `bson:"cum_gas,omitempty" json:"cum_gas,omitempty"`
	CumWater  *float64  `bson:"cum_water,omitempty" json:"cum_water,omitempty"`
}
