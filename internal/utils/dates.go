package utils

import "time"

// DateToUnix converts a YYYY-MM-DD date string to a Unix timestamp
// at midnight UTC. Dates are stored as Unix timestamps in the ledger
// databases and converted back at the edges.
func DateToUnix(date string) (int64, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, err
	}
	return t.UTC().Unix(), nil
}

// UnixToDate converts a Unix timestamp to a YYYY-MM-DD date string in UTC.
func UnixToDate(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01-02")
}

// EndOfDayUnix converts a YYYY-MM-DD date string to the Unix timestamp
// of 23:59:59 UTC on that day. Used for inclusive end-of-range queries.
func EndOfDayUnix(date string) (int64, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC).Unix(), nil
}
