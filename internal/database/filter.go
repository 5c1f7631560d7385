// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package database

import (
	"fmt"
	"time"
)

// DateRange filters analytics queries to an inclusive date window.
// A nil bound leaves that side of the window open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Validate rejects ranges where the start date is after the end date
func (r DateRange) Validate() error {
	if r.Start != nil && r.End != nil && r.Start.After(*r.End) {
		return fmt.Errorf("start date %s is after end date %s",
			r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	}
	return nil
}

// IsZero reports whether the range has no bounds
func (r DateRange) IsZero() bool {
	return r.Start == nil && r.End == nil
}

// CacheKey returns a stable string representation for cache keying
func (r DateRange) CacheKey() string {
	start, end := "", ""
	if r.Start != nil {
		start = r.Start.Format("2006-01-02")
	}
	if r.End != nil {
		end = r.End.Format("2006-01-02")
	}
	return start + ".." + end
}

// conditions returns SQL clauses and args restricting col to the range.
// Clauses are meant to be appended to a query after "WHERE 1=1".
func (r DateRange) conditions(col string) ([]string, []any) {
	var clauses []string
	var args []any

	if r.Start != nil {
		clauses = append(clauses, fmt.Sprintf("%s >= ?", col))
		args = append(args, r.Start.Format("2006-01-02"))
	}
	if r.End != nil {
		clauses = append(clauses, fmt.Sprintf("%s <= ?", col))
		args = append(args, r.End.Format("2006-01-02"))
	}

	return clauses, args
}

// whereSQL joins filter clauses for appending after "WHERE 1=1"
func whereSQL(clauses []string) string {
	sql := ""
	for _, c := range clauses {
		sql += " AND " + c
	}
	return sql
}
