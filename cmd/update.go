package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update FILE",
	Short: "Update the Unit's firmware",
	Long:  "Stream a firmware image from FILE to the Unit. Only valid while the Unit reports bootloader or needs-update capabilities.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if session == nil {
			cobra.CheckErr(fmt.Errorf("adapter not available"))
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to read firmware image: %w", err))
		}

		ack, err := session.UpdateFirmware(data)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("firmware update failed: %w", err))
		}
		fmt.Printf("firmware update streamed, ack=0x%02x\n", ack)
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
}
