package model

import (
	"testing"
)

func TestLocation_Distance(t *testing.T) {
	tests := []struct {
		name string
		a, b Location
		want float64
	}{
		{
			name: "same point",
			a:    NewLocation(10, 10, 10),
			b:    NewLocation(10, 10, 10),
			want: 0,
		},
		{
			name: "3-4-5 on ground plane",
			a:    NewLocation(0, 0, 0),
			b:    NewLocation(3, 4, 0),
			want: 5,
		},
		{
			name: "vertical only",
			a:    NewLocation(0, 0, -2),
			b:    NewLocation(0, 0, 2),
			want: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Distance(tt.b); got != tt.want {
				t.Errorf("Distance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLocation_Distance2DIgnoresHeight(t *testing.T) {
	a := NewLocation(0, 0, 0)
	b := NewLocation(3, 4, 100)
	if got := a.Distance2D(b); got != 5 {
		t.Errorf("Distance2D() = %v, want 5", got)
	}
}

func TestLocation_WithinRange(t *testing.T) {
	a := NewLocation(0, 0, 0)
	if !a.WithinRange(NewLocation(3, 4, 0), 5) {
		t.Error("point on the boundary must be in range")
	}
	if a.WithinRange(NewLocation(3, 4.1, 0), 5) {
		t.Error("point past the boundary must be out of range")
	}
}
