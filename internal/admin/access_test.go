package admin

import "testing"

func TestGetAccessLevel(t *testing.T) {
	tests := []struct {
		level     int32
		wantName  string
		wantAdmin bool
		wantEdit  bool
	}{
		{0, "User", false, false},
		{1, "Moderator", true, false},
		{2, "Game Master", true, true},
		{5, "Game Master", true, true},
		{100, "Administrator", true, true},
		{250, "Administrator", true, true},
	}
	for _, tt := range tests {
		al := GetAccessLevel(tt.level)
		if al == nil {
			t.Fatalf("GetAccessLevel(%d) = nil, want %q", tt.level, tt.wantName)
		}
		if al.Name != tt.wantName {
			t.Errorf("GetAccessLevel(%d).Name = %q, want %q", tt.level, al.Name, tt.wantName)
		}
		if al.CanUseAdminCommands != tt.wantAdmin {
			t.Errorf("GetAccessLevel(%d).CanUseAdminCommands = %v", tt.level, al.CanUseAdminCommands)
		}
		if al.CanEditState != tt.wantEdit {
			t.Errorf("GetAccessLevel(%d).CanEditState = %v", tt.level, al.CanEditState)
		}
	}
}

func TestGetAccessLevel_NegativeIsBanned(t *testing.T) {
	for _, level := range []int32{-1, -100} {
		if al := GetAccessLevel(level); al != nil {
			t.Errorf("GetAccessLevel(%d) = %+v, want nil (banned)", level, al)
		}
	}
}
