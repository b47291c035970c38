package core

import "testing"

func TestParseReading(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"18429", "18429", true},
		{"123.4", "123.4", true},
		{"123,4", "123.4", true},
		{"1 234,5", "1234.5", true},
		{" 2.50 ", "2.5", true},
		{"0", "0", true},
		{"-5", "-5", true},
		{"", "", false},
		{"   ", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseReading(tc.in)
		if ok != tc.ok {
			t.Fatalf("ParseReading(%q) ok = %v, want %v", tc.in, ok, tc.ok)
		}
		if ok && got.String() != tc.out {
			t.Fatalf("ParseReading(%q) = %s, want %s", tc.in, got, tc.out)
		}
	}
}
