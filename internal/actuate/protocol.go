package actuate

import (
	"strconv"
	"strings"

	"github.com/LdDl/lockon/lockon"
	"github.com/pkg/errors"
)

// Line protocol: ASCII, newline-terminated.
//
//	M <dx> <dy>   relative move
//	T             trigger
//	P             position query, answered by "<x> <y>"
const (
	cmdMove     = 'M'
	cmdTrigger  = 'T'
	cmdPosition = 'P'
)

// EncodeMove returns line for relative move command
func EncodeMove(dx, dy int) []byte {
	buf := make([]byte, 0, 16)
	buf = append(buf, cmdMove, ' ')
	buf = strconv.AppendInt(buf, int64(dx), 10)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(dy), 10)
	return append(buf, '\n')
}

// EncodeTrigger returns line for trigger command
func EncodeTrigger() []byte {
	return []byte{cmdTrigger, '\n'}
}

// EncodePositionQuery returns line for position query
func EncodePositionQuery() []byte {
	return []byte{cmdPosition, '\n'}
}

// ParsePosition parses "<x> <y>" reply. Surrounding whitespace and CR are ignored.
func ParsePosition(line string) (lockon.Point, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return lockon.Point{}, errors.Errorf("malformed position reply %q", line)
	}
	x, err := strconv.Atoi(fields[0])
	if err != nil {
		return lockon.Point{}, errors.Wrapf(err, "bad x in position reply %q", line)
	}
	y, err := strconv.Atoi(fields[1])
	if err != nil {
		return lockon.Point{}, errors.Wrapf(err, "bad y in position reply %q", line)
	}
	return lockon.NewPoint(x, y), nil
}
