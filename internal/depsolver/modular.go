package depsolver

import "strings"

// artifactToFilename converts a modulemd artifact NEVRA string of the form
// "NAME-EPOCH:VERSION-RELEASE.ARCH" into the binary-package filename
// "NAME-VERSION-RELEASE.ARCH.rpm" (§4.3, §6 "Modulemd artifact grammar").
// The epoch segment (the "EPOCH:" run between the last '-' of the name and
// the version) is dropped; everything else, including that '-', is kept
// verbatim and ".rpm" is appended.
//
// Source artifacts use ARCH="src"; they convert the same way and are
// indistinguishable from binary artifacts by this function alone.
func artifactToFilename(nevra string) string {
	colon := strings.IndexByte(nevra, ':')
	if colon < 0 {
		// Malformed input (missing epoch separator): best-effort, just
		// append the extension rather than fail the scan.
		return nevra + ".rpm"
	}
	dash := strings.LastIndexByte(nevra[:colon], '-')
	if dash < 0 {
		return nevra[colon+1:] + ".rpm"
	}
	return nevra[:dash+1] + nevra[colon+1:] + ".rpm"
}

// ModularFilenames computes the set of binary-package filenames claimed by
// any module stream's artifact list across modmds, adapted from
// _get_pkgs_from_all_modules (§4.3). The caller is responsible for fetching
// modmds via ContentClient.Modulemds for each modular repo and passing the
// union here; the result is frozen once and handed to NewResolver — it is
// never re-queried mid-run (§9).
func ModularFilenames(modmds []ModulemdUnit) map[string]struct{} {
	out := make(map[string]struct{})
	for _, m := range modmds {
		for _, artifact := range m.Artifacts {
			out[artifactToFilename(artifact)] = struct{}{}
		}
	}
	return out
}

// modularIndex is the frozen lookup the resolver consults to classify a
// unit as modular or not.
type modularIndex struct {
	filenames map[string]struct{}
}

func newModularIndex(filenames map[string]struct{}) modularIndex {
	if filenames == nil {
		filenames = map[string]struct{}{}
	}
	return modularIndex{filenames: filenames}
}

// IsModular reports whether u's filename is claimed by some module stream.
func (idx modularIndex) IsModular(u Unit) bool {
	if u.Filename == "" {
		return false
	}
	_, ok := idx.filenames[u.Filename]
	return ok
}
