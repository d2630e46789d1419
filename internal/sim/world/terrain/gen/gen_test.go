package gen

import "testing"

func TestLayered_Bands(t *testing.T) {
	l := Layered{GroundY: 10, DirtDepth: 3, Air: 0, Dirt: 2, Stone: 1}
	cases := []struct {
		y    int
		want byte
	}{
		{y: 10, want: 0},
		{y: 50, want: 0},
		{y: 9, want: 2},
		{y: 7, want: 2},
		{y: 6, want: 1},
		{y: -40, want: 1},
	}
	for _, tc := range cases {
		if got := l.Material(1, 4, tc.y, -4, 0); got != tc.want {
			t.Fatalf("y=%d: got %d want %d", tc.y, got, tc.want)
		}
	}
}

func TestLayered_SprinkleDeterministic(t *testing.T) {
	l := Layered{GroundY: 4, DirtDepth: 4, Air: 0, Dirt: 2, Stone: 1, SprinkleStonePermille: 1000}
	if got := l.Material(9, 0, 1, 0, 0); got != 1 {
		t.Fatalf("full sprinkle should give stone, got %d", got)
	}
	l.SprinkleStonePermille = 0
	if got := l.Material(9, 0, 1, 0, 0); got != 2 {
		t.Fatalf("no sprinkle should give dirt, got %d", got)
	}
}
