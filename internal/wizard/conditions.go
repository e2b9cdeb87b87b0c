package wizard

// isActive reports whether step takes part in the wizard right now. Steps
// without a condition are always active.
func (s *session) isActive(step string) bool {
	c, ok := s.w.conditions[step]
	if !ok {
		return true
	}
	return c.Evaluate(s)
}

// activeSequence filters the catalog through the conditions, in declaration
// order. Every condition is evaluated on its own; the result is never
// cached because any stored answer may flip a condition.
func (s *session) activeSequence() []string {
	keys := s.cat.Keys()
	out := keys[:0]
	for _, k := range keys {
		if s.isActive(k) {
			out = append(out, k)
		}
	}
	return out
}
