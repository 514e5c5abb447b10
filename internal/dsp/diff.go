package dsp

import "github.com/andrea-bruno/cloudsync/pkg/handle"

// DeletedChecker reports whether a handle has a pending local deletion
// record, regardless of its recorded mtime. Satisfied by *pdil.List;
// narrowed to an interface here so this package doesn't need to import
// pdil just to call one method.
type DeletedChecker interface {
	ContainsHandle(h handle.Handle) bool
}

// DiffStructure compares a freshly received remote structure against the
// local content map's current handle/mtime snapshot and produces the
// operations needed to converge. local is the output of
// icm.Map.KeysWithMtimes; remote is the output of icm.ParseStructure on
// the bytes the peer sent.
//
// Equal mtimes are treated as already converged — no second-order hash
// comparison is performed.
func DiffStructure(local, remote map[handle.Handle]uint32, deleted DeletedChecker) []Operation {
	var ops []Operation

	for h, mtR := range remote {
		mtL, ok := local[h]
		if !ok {
			if deleted.ContainsHandle(h) {
				ops = append(ops, Operation{Kind: OpDeleteFile, Handle: h, Mtime: mtR})
			} else {
				ops = append(ops, Operation{Kind: OpRequest, Handle: h, Mtime: mtR})
			}

			continue
		}

		switch {
		case mtR > mtL:
			ops = append(ops, Operation{Kind: OpRequest, Handle: h, Mtime: mtR})
		case mtR < mtL:
			ops = append(ops, Operation{Kind: OpSend, Handle: h, Mtime: mtL})
		}
	}

	for h, mtL := range local {
		if _, ok := remote[h]; !ok {
			ops = append(ops, Operation{Kind: OpSend, Handle: h, Mtime: mtL})
		}
	}

	return ops
}
