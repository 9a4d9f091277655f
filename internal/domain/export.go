package domain

// ExportRow is a single row in a workshop export: one row per player, in
// roster order. Receiver fields are empty until the workshop is matched.
//
// Tags are sorted. Callers that need a joined string (e.g. CSV) should join
// with "|".
type ExportRow struct {
	WorkshopCode string  `json:"workshop_code"`
	WorkshopName string  `json:"workshop_name"`
	DollarLimit  float64 `json:"dollar_limit"`

	Giver     string   `json:"giver"`
	GiverTags []string `json:"giver_tags"`

	// Receiver fields, zero values before matching.
	Receiver         string         `json:"receiver,omitempty"`
	ReceiverWishlist []WishlistItem `json:"receiver_wishlist,omitempty"`
}

// ExportRows flattens w into ExportRows.
func (w Workshop) ExportRows() []ExportRow {
	receivers := make(map[string]Player, len(w.Pairs))
	for _, pp := range w.Pairs {
		receivers[pp.Giver.Name] = pp.Receiver
	}
	rows := make([]ExportRow, 0, len(w.Players))
	for _, p := range w.Players {
		row := ExportRow{
			WorkshopCode: w.ID.String(),
			WorkshopName: w.Name,
			DollarLimit:  w.DollarLimit,
			Giver:        p.Name,
			GiverTags:    p.Tags.Slice(),
		}
		if r, ok := receivers[p.Name]; ok {
			row.Receiver = r.Name
			row.ReceiverWishlist = r.Wishlist
		}
		rows = append(rows, row)
	}
	return rows
}
