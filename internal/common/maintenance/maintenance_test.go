package maintenance

import (
	"testing"
	"time"
)

func TestExpiredVersions(t *testing.T) {
	now := time.Now()
	versions := []inactiveVersion{
		{id: 5, name: "v5", updatedAt: now},
		{id: 4, name: "v4", updatedAt: now.Add(-time.Hour)},
		{id: 2, name: "v2", updatedAt: now.Add(-2 * time.Hour)},
	}

	tests := []struct {
		name string
		keep int
		want []int
	}{
		{"keep none", 0, []int{5, 4, 2}},
		{"keep one", 1, []int{4, 2}},
		{"keep all", 3, nil},
		{"keep more than exist", 10, nil},
		{"negative keep", -1, []int{5, 4, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expiredVersions(versions, tt.keep)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d expired versions, got %d", len(tt.want), len(got))
			}
			for i, v := range got {
				if v.id != tt.want[i] {
					t.Errorf("position %d: expected version %d, got %d", i, tt.want[i], v.id)
				}
			}
		})
	}
}

func TestNetworkTablesCoverVersions(t *testing.T) {
	if networkTables[len(networkTables)-1] != "metro.versions" {
		t.Errorf("expected versions table to be vacuumed last, got %s", networkTables[len(networkTables)-1])
	}
}
