package cds

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// Record is one line of the registry dump.
type Record struct {
	Slot   int    `json:"slot" yaml:"slot"`
	Taken  bool   `json:"taken" yaml:"taken"`
	Name   string `json:"name" yaml:"name"`
	Owner  string `json:"owner" yaml:"owner"`
	Handle Handle `json:"handle" yaml:"handle"`
	Size   uint32 `json:"size" yaml:"size"`
	Table  bool   `json:"table" yaml:"table"`
}

// Dump returns the taken registry entries in slot order.
func (s *Store) Dump() []Record {
	all := s.DumpSlots()
	out := all[:0]
	for _, r := range all {
		if r.Taken {
			out = append(out, r)
		}
	}
	return out
}

// DumpSlots returns every registry slot, taken or not.
func (s *Store) DumpSlots() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reg == nil {
		return nil
	}

	slots := s.reg.Slots()
	out := make([]Record, len(slots))
	for i, sl := range slots {
		out[i] = Record{
			Slot:   sl.Slot,
			Taken:  sl.Taken,
			Name:   sl.Name,
			Owner:  sl.Owner,
			Handle: sl.Handle,
			Size:   sl.Size,
			Table:  sl.Table,
		}
	}
	return out
}

// WriteDump writes the taken entries as an aligned text table.
func (s *Store) WriteDump(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tNAME\tOWNER\tHANDLE\tSIZE\tTABLE")
	for _, r := range s.Dump() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%t\n", r.Slot, r.Name, r.Owner, r.Handle, r.Size, r.Table)
	}
	return tw.Flush()
}
