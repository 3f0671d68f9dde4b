package protocol

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// MaxPacketSize bounds a single vector update so it never fragments
const MaxPacketSize = 1200

var (
	ErrFrameTooLarge  = errors.New("frame too large")
	ErrMalformedFrame = errors.New("malformed frame")
)

const (
	fieldSender      protowire.Number = 1
	fieldDestination protowire.Number = 2
	fieldCosts       protowire.Number = 3
	fieldOrigin      protowire.Number = 4
	fieldHops        protowire.Number = 5
)

// VectorUpdate is a distance vector sent from one router to a neighbour
type VectorUpdate struct {
	Sender      int
	Destination int // diagnostic only
	Costs       []int
	// Origin is the router that produced Costs, -1 if unknown
	Origin int
	// Hops is the remaining flood budget
	Hops int
}

func Encode(u *VectorUpdate) ([]byte, error) {
	if len(u.Costs) == 0 {
		return nil, fmt.Errorf("%w: empty cost vector", ErrMalformedFrame)
	}
	if u.Sender < 0 || u.Destination < 0 || u.Hops < 0 || u.Origin < -1 {
		return nil, fmt.Errorf("%w: negative header field", ErrMalformedFrame)
	}
	var costs []byte
	for _, c := range u.Costs {
		costs = protowire.AppendVarint(costs, protowire.EncodeZigZag(int64(c)))
	}

	out := make([]byte, 0, len(costs)+32)
	out = protowire.AppendTag(out, fieldSender, protowire.VarintType)
	out = protowire.AppendVarint(out, uint64(u.Sender))
	out = protowire.AppendTag(out, fieldDestination, protowire.VarintType)
	out = protowire.AppendVarint(out, uint64(u.Destination))
	out = protowire.AppendTag(out, fieldCosts, protowire.BytesType)
	out = protowire.AppendBytes(out, costs)
	if u.Origin >= 0 {
		// stored shifted by one so that a zero value means absent
		out = protowire.AppendTag(out, fieldOrigin, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(u.Origin)+1)
	}
	if u.Hops > 0 {
		out = protowire.AppendTag(out, fieldHops, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(u.Hops))
	}

	if len(out) > MaxPacketSize {
		return nil, fmt.Errorf("%w: %d bytes for %d costs, limit is %d", ErrFrameTooLarge, len(out), len(u.Costs), MaxPacketSize)
	}
	return out, nil
}

func Decode(b []byte) (*VectorUpdate, error) {
	if len(b) > MaxPacketSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(b))
	}
	u := &VectorUpdate{Origin: -1}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, malformed(protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == fieldCosts && typ == protowire.BytesType:
			costs, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, malformed(protowire.ParseError(n))
			}
			b = b[n:]
			u.Costs = u.Costs[:0]
			for len(costs) > 0 {
				v, m := protowire.ConsumeVarint(costs)
				if m < 0 {
					return nil, malformed(protowire.ParseError(m))
				}
				costs = costs[m:]
				u.Costs = append(u.Costs, int(protowire.DecodeZigZag(v)))
			}
		case (num == fieldSender || num == fieldDestination || num == fieldOrigin || num == fieldHops) && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, malformed(protowire.ParseError(n))
			}
			b = b[n:]
			if v > uint64(MaxPacketSize)<<20 {
				return nil, malformed(fmt.Errorf("field %d out of range: %d", num, v))
			}
			switch num {
			case fieldSender:
				u.Sender = int(v)
			case fieldDestination:
				u.Destination = int(v)
			case fieldOrigin:
				u.Origin = int(v) - 1
			case fieldHops:
				u.Hops = int(v)
			}
		case num == fieldSender || num == fieldDestination || num == fieldCosts || num == fieldOrigin || num == fieldHops:
			return nil, malformed(fmt.Errorf("field %d has wire type %d", num, typ))
		default:
			// unknown fields are skipped
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, malformed(protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	if len(u.Costs) == 0 {
		return nil, fmt.Errorf("%w: missing cost vector", ErrMalformedFrame)
	}
	return u, nil
}

func malformed(err error) error {
	return fmt.Errorf("%w: %w", ErrMalformedFrame, err)
}
