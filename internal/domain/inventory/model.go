package inventory

import "time"

type MoveType string

const (
	MoveIn  MoveType = "in"
	MoveOut MoveType = "out"
)

type Movement struct {
	ID            int64     `json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	RawMaterialID int64     `json:"rawMaterialId"`
	Qty           int64     `json:"qty"`
	Type          MoveType  `json:"type"`
	Note          string    `json:"note"`
}

// TypeOf: delta > 0 => приход; delta < 0 => списание.
func TypeOf(delta int64) MoveType {
	if delta < 0 {
		return MoveOut
	}
	return MoveIn
}
