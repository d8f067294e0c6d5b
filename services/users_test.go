package services

import (
	"context"
	"testing"

	"okr-progression-system/models"
	"okr-progression-system/testutil"
)

func TestUserSearch(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	svc := NewUserService(NewStore(db, 0))

	first, last := "Ada", "Lovelace"
	users := []models.User{
		{ExternalUserID: "1", Username: "ada", Email: "ada@corp.test", FirstName: &first, LastName: &last},
		{ExternalUserID: "2", Username: "grace", Email: "GRACE@corp.test"},
		{ExternalUserID: "3", Username: "linus", Email: "linus@other.test"},
	}
	if err := db.Create(&users).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	tests := []struct {
		query string
		limit int
		want  []string
	}{
		{"", 0, []string{"ada", "grace", "linus"}},
		{"CORP", 0, []string{"ada", "grace"}},
		{"grace@", 10, []string{"grace"}},
		{"", 1, []string{"ada"}},
		{"nobody", 0, nil},
	}
	for _, tt := range tests {
		got, err := svc.Search(ctx, tt.query, tt.limit)
		if err != nil {
			t.Fatalf("Search(%q) error: %v", tt.query, err)
		}
		if len(got) != len(tt.want) {
			t.Errorf("Search(%q, %d) = %d results, want %d", tt.query, tt.limit, len(got), len(tt.want))
			continue
		}
		for i := range got {
			if got[i].Username != tt.want[i] {
				t.Errorf("Search(%q)[%d] = %s, want %s", tt.query, i, got[i].Username, tt.want[i])
			}
		}
	}

	got, _ := svc.Search(ctx, "ada", 0)
	if len(got) == 1 && got[0].Name != "Ada Lovelace" {
		t.Errorf("Name = %q, want Ada Lovelace", got[0].Name)
	}
}
