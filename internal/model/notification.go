package model

// NotifyResult is what a notification sink reports back.  Sinks never
// return errors; failures are captured here.
type NotifyResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// FailureNotice describes a booking attempt that did not go through.
type FailureNotice struct {
	HolderEmail string    `json:"holder_email"`
	HolderName  string    `json:"holder_name"`
	Departure   Departure `json:"departure"`
	Seats       []Seat    `json:"seats,omitempty"`
	Reason      string    `json:"reason"`
}
