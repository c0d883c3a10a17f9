package fields

import (
	"fmt"
	"math/rand"
	"net"
	"strings"

	"github.com/google/uuid"
)

// uuidGen emits random version 4 UUIDs. All bytes come from the stream's
// own source so output stays reproducible under a fixed seed.
type uuidGen struct {
	uppercase bool
	rng       *rand.Rand
}

func newUUID(params Params, rng *rand.Rand) (Generator, error) {
	uppercase, err := params.Bool("uppercase", false)
	if err != nil {
		return nil, err
	}
	return &uuidGen{uppercase: uppercase, rng: rng}, nil
}

func (g *uuidGen) Generate(_ *Record) (any, error) {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return nil, fmt.Errorf("failed to generate uuid: %s", err)
	}

	s := id.String()
	if g.uppercase {
		s = strings.ToUpper(s)
	}
	return s, nil
}

func (g *uuidGen) Reset() {}

// ipGen emits random addresses, optionally constrained to a CIDR block by
// masking random host bits into the network prefix.
type ipGen struct {
	network *net.IPNet
	v6      bool
	rng     *rand.Rand
}

func newIP(params Params, rng *rand.Rand) (Generator, error) {
	v6, err := params.Bool("ipv6", false)
	if err != nil {
		return nil, err
	}

	cidr, err := params.String("cidr", "")
	if err != nil {
		return nil, err
	}

	g := &ipGen{v6: v6, rng: rng}

	if cidr != "" {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("'cidr' is not valid: %s", err)
		}
		g.network = network
		g.v6 = network.IP.To4() == nil
	}

	return g, nil
}

func (g *ipGen) Generate(_ *Record) (any, error) {
	size := net.IPv4len
	if g.v6 {
		size = net.IPv6len
	}
	if g.network != nil {
		size = len(g.network.IP)
	}

	raw := make([]byte, size)
	g.rng.Read(raw)

	if g.network != nil {
		for i := range raw {
			raw[i] = g.network.IP[i] | (raw[i] &^ g.network.Mask[i])
		}
	}

	return net.IP(raw).String(), nil
}

func (g *ipGen) Reset() {}
