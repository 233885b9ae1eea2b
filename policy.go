package ssbspoof

// BoolDirective overwrites a boolean MIB field when enabled.
type BoolDirective struct {
	Enabled bool
	Value   bool
}

// UintDirective overwrites an index MIB field when enabled.
type UintDirective struct {
	Enabled bool
	Value   uint32
}

// ModificationSpec is one independent directive per modifiable field. Fields
// without an enabled directive are never touched.
type ModificationSpec struct {
	CellBarred           BoolDirective
	Coreset0Idx          UintDirective
	SS0Idx               UintDirective
	IntraFreqReselection BoolDirective
}

// Enabled reports whether any directive would modify a field.
func (s ModificationSpec) Enabled() bool {
	return s.CellBarred.Enabled || s.Coreset0Idx.Enabled ||
		s.SS0Idx.Enabled || s.IntraFreqReselection.Enabled
}

// ApplySpec overwrites the fields named by enabled directives and leaves
// everything else untouched. SFN, SSB offset and DMRS position always pass
// through so the spoofed cell keeps the victim's timing. Returns the modified
// MIB and whether anything changed; a false result means a no-op attack.
//
// Directives are independent; no cross-field consistency is enforced even if
// the resulting combination is invalid in the target protocol.
func ApplySpec(mib MIB, spec ModificationSpec) (MIB, bool) {
	changed := false

	if spec.CellBarred.Enabled {
		mib.CellBarred = spec.CellBarred.Value
		changed = true
	}
	if spec.Coreset0Idx.Enabled {
		mib.Coreset0Idx = spec.Coreset0Idx.Value
		changed = true
	}
	if spec.SS0Idx.Enabled {
		mib.SS0Idx = spec.SS0Idx.Value
		changed = true
	}
	if spec.IntraFreqReselection.Enabled {
		mib.IntraFreqReselection = spec.IntraFreqReselection.Value
		changed = true
	}

	return mib, changed
}
