package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sergev/fluxweazle/unit"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the attached Unit's firmware version and capabilities",
	Run: func(cmd *cobra.Command, args []string) {
		if session == nil {
			cobra.CheckErr(fmt.Errorf("adapter not available"))
		}

		switch caps := session.Capabilities().(type) {
		case unit.NormalCapabilities:
			fmt.Printf("firmware %s, normal mode\n", caps.Version)
			fmt.Printf("max_index=%d max_cmd=%d sample_freq=%d Hz\n", caps.MaxIndex, caps.MaxCmd, caps.SampleFreq)
			if delays, err := session.Delays(); err == nil {
				fmt.Printf("delays: select=%d step=%d seek_settle=%d motor=%d auto_off=%d\n",
					delays.Select, delays.Step, delays.SeekSettle, delays.Motor, delays.AutoOff)
			}
		case unit.UpdateModeCapabilities:
			fmt.Printf("firmware %s, bootloader mode (jumpered=%v)\n", caps.Version, caps.UpdateJumpered)
		case unit.NeedsUpdateCapabilities:
			fmt.Printf("firmware %s does not match the expected version; only `update` is available\n", caps.Version)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
