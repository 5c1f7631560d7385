// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package database

import (
	"testing"
	"time"
)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestDateRangeValidate(t *testing.T) {
	tests := []struct {
		name    string
		r       DateRange
		wantErr bool
	}{
		{"empty", DateRange{}, false},
		{"start only", DateRange{Start: date("2011-01-01")}, false},
		{"end only", DateRange{End: date("2011-12-31")}, false},
		{"valid range", DateRange{Start: date("2011-01-01"), End: date("2011-12-31")}, false},
		{"same day", DateRange{Start: date("2011-06-15"), End: date("2011-06-15")}, false},
		{"inverted", DateRange{Start: date("2011-12-31"), End: date("2011-01-01")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDateRangeConditions(t *testing.T) {
	r := DateRange{Start: date("2011-01-01"), End: date("2011-12-31")}
	clauses, args := r.conditions("dteday")

	if len(clauses) != 2 {
		t.Fatalf("expected 2 clauses, got %d: %v", len(clauses), clauses)
	}
	if clauses[0] != "dteday >= ?" || clauses[1] != "dteday <= ?" {
		t.Errorf("unexpected clauses: %v", clauses)
	}
	if len(args) != 2 || args[0] != "2011-01-01" || args[1] != "2011-12-31" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestDateRangeConditionsEmpty(t *testing.T) {
	clauses, args := DateRange{}.conditions("dteday")
	if len(clauses) != 0 || len(args) != 0 {
		t.Errorf("empty range should produce no clauses, got %v / %v", clauses, args)
	}
	if whereSQL(clauses) != "" {
		t.Errorf("whereSQL of empty clauses should be empty")
	}
}

func TestDateRangeCacheKey(t *testing.T) {
	if got := (DateRange{}).CacheKey(); got != ".." {
		t.Errorf("empty range CacheKey = %q, want ..", got)
	}

	r := DateRange{Start: date("2011-01-01"), End: date("2011-12-31")}
	if got := r.CacheKey(); got != "2011-01-01..2011-12-31" {
		t.Errorf("CacheKey = %q", got)
	}
}

func TestWhereSQL(t *testing.T) {
	got := whereSQL([]string{"a = ?", "b <= ?"})
	want := " AND a = ? AND b <= ?"
	if got != want {
		t.Errorf("whereSQL = %q, want %q", got, want)
	}
}
