package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sergev/fluxweazle/config"
	"github.com/sergev/fluxweazle/transport"
	"github.com/sergev/fluxweazle/unit"
)

var session *unit.Session

var profileName string

var rootCmd = &cobra.Command{
	Use:   "fluxweazle",
	Short: "A CLI program which captures and writes floppy flux via a USB adapter",
	Long:  "The fluxweazle tool drives a USB-attached flux-capture Unit: it reads raw magnetic flux from a floppy track and writes flux streams back, and can update the Unit's own firmware.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Name() == "help" {
			return
		}
		var err error
		session, err = attach()
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to attach to Unit: %w", err))
		}
	},
}

// attach locates the Unit over serial, opens a channel to it, and
// negotiates a session using the requested configuration profile.
func attach() (*unit.Session, error) {
	if err := config.Initialize(); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	name := profileName
	if name == "" {
		name = config.ProfileName
	}
	expectedVersion, delays, err := config.GetProfile(name)
	if err != nil {
		return nil, err
	}

	portName, err := transport.FindSerialPort(unit.VendorID, unit.ProductID)
	if err != nil {
		return nil, err
	}
	ch, err := transport.OpenSerial(portName)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}

	return unit.New(ch, expectedVersion, &delays, nil)
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "configuration profile to use (default: the config file's default)")
	cobra.CheckErr(rootCmd.Execute())
}
