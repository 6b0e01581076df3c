package govee

import "testing"

func TestAccepts(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "device name", in: "GVH5075_AB12", want: true},
		{name: "prefix only", in: "GVH5075_", want: true},
		{name: "arbitrary suffix", in: "GVH5075_ anything at all", want: true},
		{name: "empty", in: "", want: false},
		{name: "shorter than prefix", in: "GVH5075", want: false},
		{name: "other device", in: "OtherDevice", want: false},
		{name: "lower case", in: "gvh5075_AB12", want: false},
		{name: "leading space", in: " GVH5075_AB12", want: false},
		{name: "other model", in: "GVH5072_AB12", want: false},
		{name: "hyphen instead of underscore", in: "GVH5075-AB12", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Accepts(tt.in); got != tt.want {
				t.Errorf("Accepts(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
