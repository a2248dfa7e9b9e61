package survey

import "testing"

func TestParseOrder(t *testing.T) {
	tests := []struct {
		in      string
		want    Order
		wantErr bool
	}{
		{"1", 1, false},
		{"3", 3, false},
		{"12", 12, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"", 0, true},
		{"two", 0, true},
		{"1.5", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseOrder(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseOrder(%q) expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseOrder(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOrder(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOrderString(t *testing.T) {
	if got := Order(7).String(); got != "7" {
		t.Errorf("Order(7).String() = %q, want \"7\"", got)
	}
}
