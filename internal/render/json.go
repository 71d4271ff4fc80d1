package render

import (
	"encoding/json"
	"fmt"
	"io"

	"gbtrace/internal/analysis"
	"gbtrace/internal/trace"
)

// EntryView is the JSON shape of one entry. Absent fields are omitted.
type EntryView struct {
	PC          string           `json:"pc"`
	Instruction string           `json:"instruction"`
	Cycles      *uint32          `json:"cycles,omitempty"`
	Registers   map[string]uint8 `json:"registers,omitempty"`
	SP          *uint16          `json:"sp,omitempty"`
}

// NewEntryView converts e.
func NewEntryView(e trace.Entry) EntryView {
	v := EntryView{PC: fmt.Sprintf("0x%04X", e.PC), Instruction: e.Instruction}
	if e.HasCycles {
		c := e.Cycles
		v.Cycles = &c
	}
	for _, reg := range trace.AllRegisters {
		if val, ok := e.Registers.Get(reg); ok {
			if v.Registers == nil {
				v.Registers = make(map[string]uint8)
			}
			v.Registers[reg.String()] = val
		}
	}
	if sp, ok := e.Registers.SP(); ok {
		v.SP = &sp
	}
	return v
}

// EntryViews converts entries, keeping order.
func EntryViews(entries []trace.Entry) []EntryView {
	out := make([]EntryView, len(entries))
	for i, e := range entries {
		out[i] = NewEntryView(e)
	}
	return out
}

// MetadataView is the JSON shape of trace metadata.
type MetadataView struct {
	Timestamp      int64    `json:"timestamp"`
	EntryCount     int      `json:"entry_count"`
	LoadedEntries  int      `json:"loaded_entries"`
	BufferCapacity int      `json:"buffer_capacity"`
	BufferUsage    *float64 `json:"buffer_usage,omitempty"`
	SkippedRecords int      `json:"skipped_records,omitempty"`
	Format         string   `json:"format"`
}

// NewMetadataView describes t.
func NewMetadataView(t *trace.Trace) MetadataView {
	meta := t.Metadata()
	v := MetadataView{
		Timestamp:      meta.Timestamp,
		EntryCount:     meta.EntryCount,
		LoadedEntries:  t.Len(),
		BufferCapacity: meta.BufferCapacity,
		SkippedRecords: meta.SkippedRecords,
		Format:         meta.Format.String(),
	}
	if ratio, ok := t.BufferUsage(); ok {
		v.BufferUsage = &ratio
	}
	return v
}

// Document collects the results of one invocation. Sections that were not
// requested stay nil and are omitted; requested but empty ones encode as [].
type Document struct {
	File         string                               `json:"file"`
	Metadata     MetadataView                         `json:"metadata"`
	Summary      *analysis.Summary                    `json:"summary,omitempty"`
	Last         []EntryView                          `json:"last,omitzero"`
	Matches      []EntryView                          `json:"matches,omitzero"`
	Range        []EntryView                          `json:"range,omitzero"`
	Histogram    []analysis.Bucket                    `json:"histogram,omitzero"`
	Instructions []analysis.Bucket                    `json:"instructions,omitzero"`
	PCs          []analysis.PCCount                   `json:"pcs,omitzero"`
	Loops        []analysis.Loop                      `json:"loops,omitzero"`
	HotPCs       []analysis.HotPC                     `json:"hot_pcs,omitzero"`
	TightLoops   []analysis.TightLoop                 `json:"tight_loops,omitzero"`
	SequenceRuns []analysis.SequenceRun               `json:"sequence_runs,omitzero"`
	Registers    map[string][]analysis.RegisterSample `json:"registers,omitzero"`
	Findings     []analysis.Finding                   `json:"findings,omitzero"`
	Stuck        *bool                                `json:"stuck,omitempty"`
}

// NewDocument starts a document for the trace loaded from file.
func NewDocument(file string, t *trace.Trace) *Document {
	return &Document{File: file, Metadata: NewMetadataView(t)}
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if _, err := fmt.Fprintln(w, string(data)); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
