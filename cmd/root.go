package cmd

import (
	"os"

	"github.com/encodeous/dvroute/core"
	"github.com/encodeous/dvroute/state"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logPath    string
	peerAddr   string
	verbose    bool
)

// rootCmd runs a single router
var rootCmd = &cobra.Command{
	Use:   "dvroute <routerID> <udpPort> <topologyFile>",
	Short: "Simulated distance vector router",
	Long: `dvroute runs one router of a simulated network. Routers exchange distance vectors over UDP
with the neighbours listed in the topology file and periodically print their routing table.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRouterId(args[0])
		if err != nil {
			return err
		}
		port, err := parsePort(args[1])
		if err != nil {
			return err
		}
		// arguments are fine, further errors are not usage errors
		cmd.SilenceUsage = true

		ncfg, err := state.ReadLocalCfg(configPath)
		if err != nil {
			return err
		}
		ncfg.Id = id
		ncfg.Port = port
		ncfg.TopologyPath = args[2]
		if logPath != "" {
			ncfg.LogPath = logPath
		}
		if peerAddr != "" {
			ncfg.PeerAddr = peerAddr
		}
		return core.Bootstrap(ncfg, verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "optional YAML node options file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.Flags().StringVarP(&logPath, "log-path", "l", "", "also write logs to this file")
	rootCmd.Flags().StringVar(&peerAddr, "peer-addr", "", "host all neighbours listen on (default "+state.DefaultPeerAddr+")")
	rootCmd.Flags().BoolVarP(&state.DBG_log_route_table, "ltable", "t", false, "Outputs route table to the logger")
	rootCmd.Flags().BoolVarP(&state.DBG_log_router, "lroute", "r", false, "Write router events to console")
}
