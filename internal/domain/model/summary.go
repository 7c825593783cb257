package model

// Summary is the structured payload stored on a sent request and mailed to
// the recipient. Bullets always holds 3 to 5 entries.
type Summary struct {
	Bullets  []string `json:"bullets"`
	NextStep string   `json:"next_step"`
}
