package cmd

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sergev/fluxweazle/unit"
)

var writeCmd = &cobra.Command{
	Use:   "write FILE",
	Short: "Write flux to the floppy disk",
	Long:  "Write flux captured with `read` from FILE back to the floppy disk, track by track.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if session == nil {
			cobra.CheckErr(fmt.Errorf("adapter not available"))
		}
		if _, ok := session.Capabilities().(unit.NormalCapabilities); !ok {
			cobra.CheckErr(fmt.Errorf("write requires a Unit running normal firmware, have %T", session.Capabilities()))
		}

		file, err := os.Open(args[0])
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to open input file: %w", err))
		}
		defer file.Close()

		for cyl := byte(0); ; cyl++ {
			for side := byte(0); side < 2; side++ {
				fluxList, err := readTrackRecord(file)
				if err == errEOF {
					fmt.Println("Successfully wrote floppy disk")
					return
				}
				if err != nil {
					cobra.CheckErr(fmt.Errorf("failed to read track record: %w", err))
				}

				fmt.Printf("Writing cylinder %d, side %d...\n", cyl, side)
				if err := session.Seek(cyl, side); err != nil {
					cobra.CheckErr(fmt.Errorf("failed to seek to cylinder %d, side %d: %w", cyl, side, err))
				}

				err = session.WithDriveSelected(func() error {
					return session.WriteTrack(context.Background(), fluxList, unit.DefaultRetries)
				})
				if err != nil {
					cobra.CheckErr(fmt.Errorf("failed to write cylinder %d, side %d: %w", cyl, side, err))
				}
			}
		}
	},
}

var errEOF = fmt.Errorf("no more track records")

// readTrackRecord reads one track record written by writeTrackRecord and
// returns its flux list, discarding the index times (they are a property
// of the original capture, not something a write replays).
func readTrackRecord(f *os.File) ([]uint32, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, errEOF
	}
	fluxLen := binary.LittleEndian.Uint32(header[0:4])
	indexLen := binary.LittleEndian.Uint32(header[4:8])

	fluxList := make([]uint32, fluxLen)
	for i := range fluxList {
		if err := binary.Read(f, binary.LittleEndian, &fluxList[i]); err != nil {
			return nil, fmt.Errorf("read flux value %d: %w", i, err)
		}
	}
	for i := uint32(0); i < indexLen; i++ {
		var discard uint32
		if err := binary.Read(f, binary.LittleEndian, &discard); err != nil {
			return nil, fmt.Errorf("read index time %d: %w", i, err)
		}
	}
	return fluxList, nil
}

func init() {
	rootCmd.AddCommand(writeCmd)
}
