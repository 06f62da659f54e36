package roster

// PendingNameChanges returns the units whose owner name differs from the
// baseline. Presence and proxy flags never make a unit pending: the sheet is
// the record of ownership only.
func PendingNameChanges(units []Unit) []Unit {
	pending := make([]Unit, 0)
	for _, u := range units {
		if u.OwnerName != u.Baseline() {
			pending = append(pending, u)
		}
	}
	return cloneUnits(pending)
}

// IDs lists the ids of units in order.
func IDs(units []Unit) []UnitID {
	ids := make([]UnitID, len(units))
	for i, u := range units {
		ids[i] = u.ID
	}
	return ids
}
