package normalize

import (
	"reflect"
	"testing"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"user@example.com", "user@example.com"},
		{"USER@EXAMPLE.COM", "user@example.com"},
		{"  User@Example.Com  ", "user@example.com"},
		{"", ""},
		{"   ", ""},
		{"Mixed.Case@Domain.ORG", "mixed.case@domain.org"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Email(tt.input)
			if got != tt.want {
				t.Errorf("Email(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEmails(t *testing.T) {
	got := Emails([]string{"A@x.com", " a@x.com", "", "b@y.com", "B@Y.com"})
	want := []string{"a@x.com", "b@y.com"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Emails = %v, want %v", got, want)
	}
	if got := Emails(nil); got == nil || len(got) != 0 {
		t.Errorf("Emails(nil) = %#v, want empty non-nil slice", got)
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Project Alpha", "Project Alpha"},
		{"  Project Alpha  ", "Project Alpha"},
		{"", ""},
		{"UPPERCASE NAME", "UPPERCASE NAME"},
	}

	for _, tt := range tests {
		if got := Name(tt.input); got != tt.want {
			t.Errorf("Name(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTags(t *testing.T) {
	got := Tags([]string{"Go", "go", " science ", "", "Science", "math", "science", "Go"})
	want := []string{"Go", "go", "science", "Science", "math"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tags = %v, want %v", got, want)
	}
}

func TestRole(t *testing.T) {
	if got := Role(" Guest "); got != "guest" {
		t.Errorf("Role = %q, want guest", got)
	}
}
