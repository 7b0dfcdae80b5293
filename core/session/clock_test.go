package session

import "testing"

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "12:00 AM", want: 0},
		{in: "12:30 AM", want: 30},
		{in: "01:00 AM", want: 60},
		{in: "09:00 AM", want: 540},
		{in: "9:05 am", want: 545},
		{in: "12:00 PM", want: 720},
		{in: "12:59 PM", want: 779},
		{in: "01:00 PM", want: 780},
		{in: "11:59 PM", want: 1439},
		{in: " 10:00PM ", want: 1320},
		{in: "", wantErr: true},
		{in: "10:00", wantErr: true},
		{in: "13:00 PM", wantErr: true},
		{in: "00:10 AM", wantErr: true},
		{in: "10:60 AM", wantErr: true},
		{in: "ten AM", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseClock(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseClock(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatClock(t *testing.T) {
	for minutes := 0; minutes < 1440; minutes++ {
		got, err := ParseClock(FormatClock(minutes))
		if err != nil || got != minutes {
			t.Fatalf("ParseClock(FormatClock(%d)) = %d, %v", minutes, got, err)
		}
	}
	if got := NormalizeClock("9:05 pm"); got != "09:05 PM" {
		t.Errorf("NormalizeClock() = %q", got)
	}
	if got := NormalizeClock(" nope "); got != "nope" {
		t.Errorf("NormalizeClock() = %q", got)
	}
}
