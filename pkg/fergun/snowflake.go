package fergun

import (
	"fmt"
	"strconv"
	"time"
)

// snowflakeEpochMillis is the Discord snowflake epoch (2015-01-01T00:00:00Z)
// in milliseconds since the Unix epoch.
const snowflakeEpochMillis int64 = 1420070400000

// snowflakeTimestampShift is the bit offset of the millisecond timestamp
// inside a snowflake; the low 22 bits carry worker and sequence data.
const snowflakeTimestampShift = 22

// Snowflake is an externally assigned 64-bit identifier whose high bits
// encode the creation time of the object it names.
//
// The encoding is an external wire contract: identifiers issued by the
// gateway must decode with exactly this shift to stay comparable.
type Snowflake uint64

// ParseSnowflake converts a decimal wire identifier into a Snowflake.
func ParseSnowflake(raw string) (Snowflake, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse snowflake %q: %w", raw, err)
	}

	return Snowflake(id), nil
}

// SnowflakeAt builds the smallest snowflake whose decoded creation time is
// the provided instant. Useful for age cutoffs and tests; real identifiers
// are always assigned by the gateway.
func SnowflakeAt(timestamp time.Time) Snowflake {
	millis := timestamp.UnixMilli() - snowflakeEpochMillis
	if millis < 0 {
		millis = 0
	}

	return Snowflake(uint64(millis) << snowflakeTimestampShift)
}

// Timestamp decodes the creation time embedded in the identifier.
//
// The function is total: any 64-bit value decodes to some instant. The
// result is only meaningful for relative ordering and age checks, never
// for precise wall-clock display.
func (s Snowflake) Timestamp() time.Time {
	millis := int64(s>>snowflakeTimestampShift) + snowflakeEpochMillis

	return time.UnixMilli(millis).UTC()
}

// IsZero reports whether the identifier is unset.
func (s Snowflake) IsZero() bool {
	return s == 0
}

// String returns the decimal wire form of the identifier.
func (s Snowflake) String() string {
	return strconv.FormatUint(uint64(s), 10)
}
