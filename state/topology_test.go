package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTopology = `5
0 1 4 3001
0 3 2 3003
`

func TestParseTopology(t *testing.T) {
	topo, err := ParseTopology(strings.NewReader(sampleTopology))
	require.NoError(t, err)
	assert.Equal(t, 5, topo.NodeCount)
	assert.Equal(t, []Neighbour{
		{Id: 1, Cost: 4, Port: 3001, SelfId: 0},
		{Id: 3, Cost: 2, Port: 3003, SelfId: 0},
	}, topo.Neighbours)
}

func TestParseTopologySkipsBlankAndComments(t *testing.T) {
	topo, err := ParseTopology(strings.NewReader("# network\n\n3\n\n1 0 5 4000  \n# done\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, topo.NodeCount)
	require.Len(t, topo.Neighbours, 1)
	assert.Equal(t, NodeId(0), topo.Neighbours[0].Id)
}

func TestParseTopologyNoNeighbours(t *testing.T) {
	topo, err := ParseTopology(strings.NewReader("1\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, topo.NodeCount)
	assert.Empty(t, topo.Neighbours)
}

func TestParseTopologyMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":           "",
		"bad count":       "five\n",
		"zero count":      "0\n",
		"count fields":    "3 4\n",
		"too few fields":  "3\n0 1 4\n",
		"not a number":    "3\n0 x 4 3001\n",
		"id out of range": "3\n0 3 4 3001\n",
		"negative cost":   "3\n0 1 -4 3001\n",
		"bad port":        "3\n0 1 4 70000\n",
		"duplicate":       "3\n0 1 4 3001\n0 1 2 3002\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTopology(strings.NewReader(input))
			assert.ErrorIs(t, err, ErrMalformedTopology)
		})
	}
}

func TestParseTopologyReportsLine(t *testing.T) {
	_, err := ParseTopology(strings.NewReader("3\n0 1 4 3001\n0 2 x 3002\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestLoadTopology(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "config0.txt")
	require.NoError(t, os.WriteFile(p, []byte(sampleTopology), 0600))

	topo, err := LoadTopology(p)
	require.NoError(t, err)
	assert.Equal(t, 5, topo.NodeCount)
	assert.Len(t, topo.Neighbours, 2)
}

func TestLoadTopologyMissing(t *testing.T) {
	_, err := LoadTopology(filepath.Join(t.TempDir(), "nope.txt"))
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLoadTopologyMalformed(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(p, []byte("3\n0 1\n"), 0600))
	_, err := LoadTopology(p)
	assert.ErrorIs(t, err, ErrMalformedTopology)
	assert.NotErrorIs(t, err, ErrConfigNotFound)
}
