package depsolver

// Export partitions the accumulated binary and source selection by
// associate_source_repo_id, deduplicated by underlying unit identity within
// each partition (§4.4). Both output_set and srpm_output_set flow through
// this single call; there is no separate SRPM export.
func (r *Resolver) Export() map[string][]WrappedUnit {
	out := make(map[string][]WrappedUnit)
	appendAll := func(set map[outputKey]WrappedUnit) {
		for key, w := range set {
			out[key.repoID] = append(out[key.repoID], w)
		}
	}
	appendAll(r.outputSet)
	appendAll(r.srpmOutputSet)
	return out
}
