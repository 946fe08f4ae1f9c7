package schema

// Match classifies incoming field names against the remote schema held in
// the run context:
//
//   - exact: normalized forms match and the literal spelling is identical
//   - similar: normalized forms match but the literal spelling differs,
//     requires explicit resolution
//   - new: no normalized match, requires explicit creation approval
//
// Every incoming name lands in exactly one bucket.
func Match(incoming []string, rc *RunContext) *ValidationResult {
	res := &ValidationResult{}
	for _, name := range incoming {
		nn := NormalizeFieldName(name)
		existing, ok := rc.Lookup(nn)
		switch {
		case !ok:
			res.NewFields = append(res.NewFields, name)
		case existing.Name == name:
			res.ExactMatches = append(res.ExactMatches, name)
		default:
			res.SimilarMatches = append(res.SimilarMatches, SimilarMatch{
				Input:      name,
				Existing:   existing,
				Normalized: nn,
			})
		}
	}
	return res
}
