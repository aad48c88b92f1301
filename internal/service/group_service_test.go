package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestGroupCreateValidation(t *testing.T) {
	svc := NewGroupService(openTestDB(t))
	ctx := context.Background()

	var fe *FormError
	_, err := svc.Create(ctx, strings.Repeat("я", 201), strings.Repeat("s", 65), "")
	if !errors.As(err, &fe) || fe.Fields["title"] == "" || fe.Fields["slug"] == "" {
		t.Fatalf("oversized title and slug: %v", err)
	}
	if _, err = svc.Create(ctx, "", "bad slug", ""); !errors.As(err, &fe) {
		t.Fatalf("empty title: %v", err)
	}
	// 200 个字符正好允许
	if _, err = svc.Create(ctx, strings.Repeat("я", 200), "cyrillic", ""); err != nil {
		t.Fatal(err)
	}
}

func TestGroupPage(t *testing.T) {
	svc := NewGroupService(openTestDB(t))
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		if _, err := svc.Create(ctx, fmt.Sprintf("Group %02d", i), fmt.Sprintf("g%02d", i), ""); err != nil {
			t.Fatal(err)
		}
	}

	first, err := svc.Page(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Items) != 10 || first.NumPages != 2 || !first.HasNext() {
		t.Fatalf("first page: %d items, %d pages", len(first.Items), first.NumPages)
	}
	last, _ := svc.Page(ctx, "99")
	if last.Number != 2 || len(last.Items) != 2 || last.Items[1].Slug != "g11" {
		t.Fatalf("last page: %+v", last)
	}
}
