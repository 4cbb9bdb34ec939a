package model

// Departure identifies one bus run.  Two departures are the same entity
// when their keys match (see Identify), whether or not an ID is present.
//
// Fields:
//
//	ID    – optional server-assigned identifier; wins over the route fields.
//	From  – origin city.
//	To    – destination city.
//	Date  – calendar day in any common client format.
//	Time  – local clock time, 12h or 24h.
//	Price – fare shown to the holder; carried into notifications.
type Departure struct {
	ID    string  `json:"id,omitempty"`
	From  string  `json:"from"`
	To    string  `json:"to"`
	Date  string  `json:"date"`
	Time  string  `json:"time"`
	Price float64 `json:"price,omitempty"`
}

// Key returns the canonical DepartureKey for d.
func (d Departure) Key() string { return Identify(d) }
