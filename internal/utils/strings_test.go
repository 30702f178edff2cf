package utils

import "testing"

func TestIsValidEmail(t *testing.T) {
	valid := []string{"test@example.com", "User.Name@Domain.ORG", "  padded@example.com  "}
	for _, email := range valid {
		if !IsValidEmail(email) {
			t.Errorf("IsValidEmail(%q) = false, want true", email)
		}
	}

	invalid := []string{"", "plainaddress", "missing@domain", "two@@example.com", "@example.com"}
	for _, email := range invalid {
		if IsValidEmail(email) {
			t.Errorf("IsValidEmail(%q) = true, want false", email)
		}
	}
}

func TestCountURLs(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"no links here", 0},
		{"visit https://example.com today", 1},
		{"both http://a.example and HTTPS://B.EXAMPLE", 2},
		{"bare www.example.com counts too", 1},
		{"https://a.example http://b.example www.c.example", 3},
	}

	for _, tc := range cases {
		if got := CountURLs(tc.text); got != tc.want {
			t.Errorf("CountURLs(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Jane Doe", "Jane D."},
		{"Jane", "Jane"},
		{"", "Anonymous"},
		{"   ", "Anonymous"},
		{"Mary Jane Watson", "Mary W."},
		{"jane doe", "jane D."},
	}

	for _, tc := range cases {
		if got := DisplayName(tc.in); got != tc.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
