package cmd

import (
	"fmt"

	"github.com/encodeous/dvroute/core"
	"github.com/encodeous/dvroute/state"
	"github.com/spf13/cobra"
)

// checkCmd validates a topology file without starting the router
var checkCmd = &cobra.Command{
	Use:   "check <routerID> <topologyFile>",
	Short: "Validates a topology file and prints the seeded routing state",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRouterId(args[0])
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true

		topo, err := state.LoadTopology(args[1])
		if err != nil {
			return err
		}
		ncfg := state.LocalCfg{Id: id}
		err = state.TopologyValidator(&ncfg, topo)
		if err != nil {
			return err
		}
		rs, err := state.NewRouterState(id, topo)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Topology is valid: %d nodes, %d neighbours\n", topo.NodeCount, len(rs.Neighbours))
		for _, neigh := range rs.Neighbours {
			fmt.Fprintf(out, "  neighbour %d cost %d port %d\n", neigh.Id, neigh.Cost, neigh.Port)
			if neigh.SelfId != id {
				fmt.Fprintf(out, "  warning: line for neighbour %d names router %d\n", neigh.Id, neigh.SelfId)
			}
		}
		fmt.Fprintf(out, "Seeded vector %s\n", rs.Vector)
		return core.WriteRouteTable(out, rs.Table)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
