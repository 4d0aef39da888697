package providers

import "testing"

func TestParseRate(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "", want: 1.0},
		{in: "-2%", want: 0.98},
		{in: "+10%", want: 1.1},
		{in: "0%", want: 1.0},
		{in: "1.25", want: 1.25},
		{in: " 0.9 ", want: 0.9},
		{in: "-100%", wantErr: true},
		{in: "0", wantErr: true},
		{in: "fast", wantErr: true},
		{in: "x%", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRate(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("ParseRate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
