package state

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

var (
	ErrConfigNotFound    = errors.New("topology file not found")
	ErrMalformedTopology = errors.New("malformed topology")
)

type NodeId int

// Neighbour is a direct adjacency of this router
type Neighbour struct {
	Id   NodeId
	Cost int
	Port uint16
	// SelfId is the first column of the neighbour line, informational only
	SelfId NodeId
}

// Topology is one router's view of the network
type Topology struct {
	NodeCount  int
	Neighbours []Neighbour
}

func LoadTopology(path string) (*Topology, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}
	defer f.Close()
	topo, err := ParseTopology(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return topo, nil
}

/*
ParseTopology reads the topology syntax:

	5            // total number of nodes
	0 1 4 3001   // <selfID> <neighborID> <cost> <port>
	0 3 2 3003

Blank lines and lines starting with # are skipped.
*/
func ParseTopology(r io.Reader) (*Topology, error) {
	topo := &Topology{}
	sc := bufio.NewScanner(r)
	lineNo := 0
	seenCount := false
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if !seenCount {
			if len(fields) != 1 {
				return nil, malformed(lineNo, "expected node count, got %q", line)
			}
			n, err := strconv.Atoi(fields[0])
			if err != nil || n < 1 {
				return nil, malformed(lineNo, "invalid node count %q", fields[0])
			}
			topo.NodeCount = n
			seenCount = true
			continue
		}
		neigh, err := parseNeighbour(fields, topo.NodeCount)
		if err != nil {
			return nil, malformed(lineNo, "%s", err)
		}
		if topo.GetNeighbour(neigh.Id) != nil {
			return nil, malformed(lineNo, "duplicate neighbour %d", neigh.Id)
		}
		topo.Neighbours = append(topo.Neighbours, neigh)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !seenCount {
		return nil, fmt.Errorf("%w: missing node count", ErrMalformedTopology)
	}
	return topo, nil
}

func parseNeighbour(fields []string, n int) (Neighbour, error) {
	if len(fields) != 4 {
		return Neighbour{}, fmt.Errorf("expected 4 fields <selfID> <neighborID> <cost> <port>, got %d", len(fields))
	}
	var vals [4]int
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return Neighbour{}, fmt.Errorf("field %d: %q is not an integer", i+1, f)
		}
		vals[i] = v
	}
	if vals[1] < 0 || vals[1] >= n {
		return Neighbour{}, fmt.Errorf("neighbour id %d out of range [0, %d)", vals[1], n)
	}
	if vals[2] < 0 {
		return Neighbour{}, fmt.Errorf("negative cost %d", vals[2])
	}
	if vals[3] < 1 || vals[3] > 65535 {
		return Neighbour{}, fmt.Errorf("invalid port %d", vals[3])
	}
	return Neighbour{
		SelfId: NodeId(vals[0]),
		Id:     NodeId(vals[1]),
		Cost:   vals[2],
		Port:   uint16(vals[3]),
	}, nil
}

func malformed(line int, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrMalformedTopology, line, fmt.Sprintf(format, args...))
}

func (t *Topology) GetNeighbour(id NodeId) *Neighbour {
	for i := range t.Neighbours {
		if t.Neighbours[i].Id == id {
			return &t.Neighbours[i]
		}
	}
	return nil
}
