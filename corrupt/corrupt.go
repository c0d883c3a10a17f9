// Package corrupt mutates fully rendered lines to simulate malformed log
// output. It runs after rendering so it is format-agnostic, and every draw
// comes from the owning stream's source so runs stay reproducible.
package corrupt

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
)

// A Corruptor decides per line whether to corrupt it and applies one of
// seven mutation kinds, selected uniformly.
type Corruptor struct {
	probability float64
	rng         *rand.Rand
}

// New builds a Corruptor from a percentage in [0, 100].
func New(percent float64, rng *rand.Rand) (*Corruptor, error) {
	if percent < 0 || percent > 100 {
		return nil, fmt.Errorf("corrupt percentage must be in 0..100, got %v", percent)
	}

	return &Corruptor{probability: percent / 100, rng: rng}, nil
}

type mutation func(c *Corruptor, line string) string

var mutations = []mutation{
	(*Corruptor).truncate,
	(*Corruptor).garbageTimestamp,
	(*Corruptor).missingField,
	(*Corruptor).nullByte,
	(*Corruptor).swapTypes,
	(*Corruptor).duplicateChars,
	(*Corruptor).caseFlip,
}

// MaybeCorrupt rolls the dice for one line. The pass-through path consumes
// exactly one draw from the source.
func (c *Corruptor) MaybeCorrupt(line string) string {
	if c.rng.Float64() >= c.probability {
		return line
	}

	if line == "" {
		return line
	}

	return mutations[c.rng.Intn(len(mutations))](c, line)
}

// truncate cuts the line at a random offset in [1, len-1].
func (c *Corruptor) truncate(line string) string {
	if len(line) < 2 {
		return line
	}
	return line[:1+c.rng.Intn(len(line)-1)]
}

var timestampShape = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{2}:\d{2}:\d{2}`)

// garbageTimestamp replaces a date or time shaped substring with an
// out-of-range value.
func (c *Corruptor) garbageTimestamp(line string) string {
	loc := timestampShape.FindStringIndex(line)
	if loc == nil {
		return line
	}

	garbage := "99:99:99"
	if strings.Contains(line[loc[0]:loc[1]], "-") {
		garbage = "9999-13-42"
	}

	return line[:loc[0]] + garbage + line[loc[1]:]
}

// missingField drops one whitespace-delimited token.
func (c *Corruptor) missingField(line string) string {
	tokens := strings.Fields(line)
	if len(tokens) < 2 {
		return line
	}

	drop := c.rng.Intn(len(tokens))
	return strings.Join(append(tokens[:drop:drop], tokens[drop+1:]...), " ")
}

// nullByte embeds a NUL character at a random offset.
func (c *Corruptor) nullByte(line string) string {
	pos := c.rng.Intn(len(line) + 1)
	return line[:pos] + "\x00" + line[pos:]
}

var numberToken = regexp.MustCompile(`\d+`)

const letters = "abcdefghijklmnopqrstuvwxyz"

// swapTypes replaces one numeric token with alphabetic characters of the
// same length.
func (c *Corruptor) swapTypes(line string) string {
	matches := numberToken.FindAllStringIndex(line, -1)
	if matches == nil {
		return line
	}

	loc := matches[c.rng.Intn(len(matches))]

	replacement := make([]byte, loc[1]-loc[0])
	for i := range replacement {
		replacement[i] = letters[c.rng.Intn(len(letters))]
	}

	return line[:loc[0]] + string(replacement) + line[loc[1]:]
}

// duplicateChars doubles a short run of characters at a random position.
func (c *Corruptor) duplicateChars(line string) string {
	pos := c.rng.Intn(len(line))

	runLen := 1 + c.rng.Intn(3)
	if pos+runLen > len(line) {
		runLen = len(line) - pos
	}

	return line[:pos+runLen] + line[pos:pos+runLen] + line[pos+runLen:]
}

// caseFlip inverts letter case over a random contiguous substring.
func (c *Corruptor) caseFlip(line string) string {
	start := c.rng.Intn(len(line))
	length := 1 + c.rng.Intn(len(line)-start)

	flipped := []byte(line)
	for i := start; i < start+length; i++ {
		ch := flipped[i]
		switch {
		case ch >= 'a' && ch <= 'z':
			flipped[i] = ch - 'a' + 'A'
		case ch >= 'A' && ch <= 'Z':
			flipped[i] = ch - 'A' + 'a'
		}
	}

	return string(flipped)
}
