package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"gbtrace/internal/config"
)

// TraceDocument describes the trace file layout accepted by the loader.
type TraceDocument struct {
	Metadata TraceMetadata `json:"metadata" jsonschema:"required"`
	Entries  []TraceEntry  `json:"entries" jsonschema:"required"`
}

type TraceMetadata struct {
	Timestamp      int64 `json:"timestamp" jsonschema:"description=Capture time in unix seconds"`
	EntryCount     int   `json:"entry_count" jsonschema:"description=Entries recorded; defaults to the length of entries"`
	BufferCapacity int   `json:"buffer_capacity,omitempty" jsonschema:"description=Recorder ring buffer size (buffer_size is accepted too)"`
}

// TraceEntry is one executed instruction. Fields may also be nested under a
// "fields" object and registers under "registers".
type TraceEntry struct {
	PC          uint16 `json:"pc" jsonschema:"required,description=Program counter before execution"`
	Instruction string `json:"instruction" jsonschema:"required,description=Disassembled instruction text"`
	Cycles      uint32 `json:"cycles,omitempty" jsonschema:"description=Machine cycles taken"`
	A           uint8  `json:"a,omitempty"`
	F           uint8  `json:"f,omitempty"`
	B           uint8  `json:"b,omitempty"`
	C           uint8  `json:"c,omitempty"`
	D           uint8  `json:"d,omitempty"`
	E           uint8  `json:"e,omitempty"`
	H           uint8  `json:"h,omitempty"`
	L           uint8  `json:"l,omitempty"`
	SP          uint16 `json:"sp,omitempty"`
}

var schemaTargets = map[string]func() any{
	"config": func() any { return &config.Config{} },
	"trace":  func() any { return &TraceDocument{} },
}

var schemaCmd = &cobra.Command{
	Use:       "schema [config|trace]",
	Short:     "Generate JSON schema for configuration or trace files",
	Long:      "Generate JSON schema for the gbtrace config file (default) or the trace document format",
	Hidden:    true,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"config", "trace"},
	RunE: func(cmd *cobra.Command, args []string) error {
		target := "config"
		if len(args) == 1 {
			target = args[0]
		}
		build, ok := schemaTargets[target]
		if !ok {
			return fmt.Errorf("unknown schema %q: want config or trace", target)
		}

		reflector := new(jsonschema.Reflector)
		bts, err := json.MarshalIndent(reflector.Reflect(build()), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal schema: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(bts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
