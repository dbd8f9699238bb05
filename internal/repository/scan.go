package repository

import "time"

// scanner covers both *sql.Row and *sql.Rows so one scan function serves
// single-row and list queries.
type scanner interface {
	Scan(dest ...interface{}) error
}

// Timestamps are stored as RFC3339Nano text. Older rows may carry the
// second-precision form.
func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err == nil {
		return t.UTC(), nil
	}
	t, err = time.Parse(time.RFC3339, raw)
	if err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatNullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
