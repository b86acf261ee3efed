package value

// Cacheable reports whether v may be shared through an intern table.
//
// A relationship identifier vetoes sharing outright. Otherwise leaves are
// cacheable and composites are cacheable iff every child is. The result
// depends only on v's own fields and its children, so it is stable for the
// lifetime of v and safe to compute from any goroutine.
func Cacheable(v Value) bool {
	switch v := v.(type) {
	case *Pitch:
		return v != nil
	case *Articulation:
		return v != nil && v.rel == NoRelation
	case *Dynamic:
		return v != nil && v.rel == NoRelation
	case *Marker:
		return v != nil && v.rel == NoRelation
	case *Rest:
		return v != nil && v.rel == NoRelation && allCacheable(v.attachments)
	case *Note:
		return v != nil && v.rel == NoRelation && Cacheable(v.pitch) && allCacheable(v.attachments)
	case *Chord:
		if v == nil || v.rel != NoRelation {
			return false
		}
		for _, n := range v.notes {
			if !Cacheable(n) {
				return false
			}
		}
		return allCacheable(v.attachments)
	default:
		return false
	}
}

func allCacheable(vs []Value) bool {
	for _, c := range vs {
		if !Cacheable(c) {
			return false
		}
	}
	return true
}
