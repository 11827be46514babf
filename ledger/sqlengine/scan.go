package sqlengine

import (
	"fmt"
	"strconv"
	"time"
)

// timestampLayout has a fixed fraction width so that TEXT timestamps on SQLite sort chronologically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// scannedTime scans TIMESTAMPTZ columns (pgx, lib/pq) as well as TEXT timestamps (SQLite).
type scannedTime struct {
	time.Time
}

// Scan implements sql.Scanner.
func (t *scannedTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		return fmt.Errorf("scan timestamp: unexpected NULL")
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", src)
	}
}

func (t *scannedTime) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("scan timestamp: %w", err)
	}

	t.Time = parsed.UTC()

	return nil
}

func boolString(b bool) string {
	return strconv.FormatBool(b)
}

func intString(i int) string {
	return strconv.Itoa(i)
}
