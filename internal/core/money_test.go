package core

import "testing"

func TestParseDecimalToPaise(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToPaise(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		paise int64
		want  string
	}{
		{0, "0.00"},
		{1, "0.01"},
		{123450, "1234.50"},
		{-1205, "-12.05"},
	}
	for _, tc := range cases {
		if got := (Money{Paise: tc.paise}).String(); got != tc.want {
			t.Fatalf("paise=%d expected %q, got %q", tc.paise, tc.want, got)
		}
	}
}

func TestMoneyAbsNeg(t *testing.T) {
	if got := (Money{Paise: -50}).Abs(); got.Paise != 50 {
		t.Fatalf("Abs(-50) = %d", got.Paise)
	}
	if got := (Money{Paise: 50}).Neg(); got.Paise != -50 {
		t.Fatalf("Neg(50) = %d", got.Paise)
	}
}
