package model

import "testing"

func TestPosture_Suspicious(t *testing.T) {
	tests := []struct {
		name    string
		posture Posture
		want    bool
	}{
		{"standing still", Posture{}, false},
		{"driving", Posture{InVehicle: true}, false},
		{"running", Posture{Running: true}, true},
		{"crouching", Posture{Crouching: true}, true},
		{"weapon out", Posture{Armed: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.posture.Suspicious(); got != tt.want {
				t.Errorf("Suspicious() = %v, want %v", got, tt.want)
			}
		})
	}
}
