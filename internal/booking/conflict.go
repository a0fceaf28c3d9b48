package booking

// FindConflict returns the earliest-starting scheduled meeting in roomID that
// overlaps r, ignoring excludeID. It returns nil when the slot is free.
func FindConflict(meetings []Meeting, roomID string, r TimeRange, excludeID string) *Meeting {
	var found *Meeting
	for i := range meetings {
		m := &meetings[i]
		if m.RoomID != roomID || !m.Scheduled() {
			continue
		}
		if excludeID != "" && m.ID == excludeID {
			continue
		}
		if !m.Range.Overlaps(r) {
			continue
		}
		if found == nil || m.Range.Compare(found.Range) < 0 {
			found = m
		}
	}
	if found == nil {
		return nil
	}
	out := found.Clone()
	return &out
}
