package models

// Flight is the priced fare a booking may be validated against. Flights are
// managed by the catalog service; this backend only reads them.
type Flight struct {
	BaseModel
	FlightCode string `gorm:"index" json:"flight_code"`
	Fare       int64  `json:"fare"`
}
