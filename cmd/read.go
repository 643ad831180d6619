package cmd

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sergev/fluxweazle/flux"
	"github.com/sergev/fluxweazle/unit"
)

var readRevs int

var readCmd = &cobra.Command{
	Use:   "read [FILE]",
	Short: "Read flux from the floppy disk",
	Long:  "Read raw flux from every cylinder and side of the floppy disk. Optionally specify a FILE to write the captured flux to.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if session == nil {
			cobra.CheckErr(fmt.Errorf("adapter not available"))
		}

		filename := "flux.raw"
		if len(args) > 0 {
			filename = args[0]
		}
		file, err := os.Create(filename)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to create output file: %w", err))
		}
		defer file.Close()

		caps, ok := session.Capabilities().(unit.NormalCapabilities)
		if !ok {
			cobra.CheckErr(fmt.Errorf("read requires a Unit running normal firmware, have %T", session.Capabilities()))
		}

		for cyl := byte(0); cyl < 80; cyl++ {
			for side := byte(0); side < 2; side++ {
				fmt.Printf("Reading cylinder %d, side %d...\n", cyl, side)

				if err := session.Seek(cyl, side); err != nil {
					cobra.CheckErr(fmt.Errorf("failed to seek to cylinder %d, side %d: %w", cyl, side, err))
				}

				var rec *flux.Record
				err := session.WithDriveSelected(func() error {
					var rerr error
					rec, rerr = session.ReadTrack(context.Background(), readRevs, unit.DefaultRetries)
					return rerr
				})
				if err != nil {
					cobra.CheckErr(fmt.Errorf("failed to read cylinder %d, side %d: %w", cyl, side, err))
				}

				if err := writeTrackRecord(file, rec); err != nil {
					cobra.CheckErr(fmt.Errorf("failed to write track record: %w", err))
				}
			}
		}

		fmt.Printf("Successfully read floppy disk to %s (sample rate %d Hz)\n", filename, caps.SampleFreq)
	},
}

// writeTrackRecord appends one track's flux record to w as a
// length-prefixed run of little-endian u32 tick intervals, followed by
// the index times that bound it. This is a private capture format for
// round-tripping through this tool; it is not any standard flux image
// format, and converting to one is out of scope here.
func writeTrackRecord(w *os.File, rec *flux.Record) error {
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], uint32(len(rec.FluxList)))
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(rec.IndexTimes)))
	if _, err := w.Write(header); err != nil {
		return err
	}
	for _, v := range rec.FluxList {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	for _, v := range rec.IndexTimes {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	readCmd.Flags().IntVar(&readRevs, "revs", 2, "number of whole revolutions to capture per track")
	rootCmd.AddCommand(readCmd)
}
