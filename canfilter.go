package godiag

// CANFilter is an identifier/mask pair used to select which incoming
// frames an adapter or subscriber is interested in.
type CANFilter struct {
	ID       uint32
	Mask     uint32
	Extended bool
}

// Matches reports whether the frame passes the filter. Standard and
// extended identifiers live in separate spaces, so the flag must agree.
func (cf CANFilter) Matches(f *CANFrame) bool {
	if f.Extended != cf.Extended {
		return false
	}
	return f.Identifier&cf.Mask == cf.ID&cf.Mask
}

// MatchAny reports whether any of the filters matches the frame. An
// empty filter list is an accept-all.
func MatchAny(filters []CANFilter, f *CANFrame) bool {
	if len(filters) == 0 {
		return true
	}
	for _, cf := range filters {
		if cf.Matches(f) {
			return true
		}
	}
	return false
}
