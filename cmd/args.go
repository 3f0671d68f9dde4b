package cmd

import (
	"fmt"
	"strconv"

	"github.com/encodeous/dvroute/state"
)

func parseRouterId(s string) (state.NodeId, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid router id %q", s)
	}
	return state.NodeId(id), nil
}

func parsePort(s string) (uint16, error) {
	port, err := strconv.ParseUint(s, 10, 16)
	if err != nil || port == 0 {
		return 0, fmt.Errorf("invalid udp port %q, expected 1..65535", s)
	}
	return uint16(port), nil
}
