package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Yatube/internal/model"
	"Yatube/internal/pkg"
)

type countingCache struct{ n int }

func (c *countingCache) Invalidate(context.Context) error {
	c.n++
	return nil
}

func uploadFile(t *testing.T, name string, data []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("image", name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = fw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err = w.Close(); err != nil {
		t.Fatal(err)
	}
	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["image"][0]
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestCreatePost(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	cache := &countingCache{}
	media := pkg.NewMediaStore(t.TempDir(), "")
	svc := NewPostService(db, media, cache, testLogger())
	groups := NewGroupService(db)
	author := mustUser(t, db, "author")
	g, err := groups.Create(ctx, "Cats", "cats", "about cats")
	if err != nil {
		t.Fatal(err)
	}

	var fe *FormError
	if _, err = svc.Create(ctx, author.ID, PostInput{Text: "   "}); !errors.As(err, &fe) || fe.Fields["text"] == "" {
		t.Fatalf("empty text: got %v", err)
	}
	missing := uint64(999)
	if _, err = svc.Create(ctx, author.ID, PostInput{Text: "hi", GroupID: &missing}); !errors.As(err, &fe) || fe.Fields["group"] == "" {
		t.Fatalf("unknown group: got %v", err)
	}
	if _, err = svc.Create(ctx, author.ID, PostInput{Text: "hi", Image: uploadFile(t, "a.txt", []byte("plain text"))}); !errors.As(err, &fe) || fe.Fields["image"] == "" {
		t.Fatalf("not an image: got %v", err)
	}
	page, err := svc.Index(ctx, "")
	if err != nil || page.Total != 0 {
		t.Fatalf("invalid forms must not write: total=%d err=%v", page.Total, err)
	}

	post, err := svc.Create(ctx, author.ID, PostInput{Text: "with picture", GroupID: &g.ID, Image: uploadFile(t, "a.png", pngBytes(t))})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(post.Image) != ".png" {
		t.Fatalf("image path %q", post.Image)
	}
	if _, err = os.Stat(filepath.Join(media.Root, post.Image)); err != nil {
		t.Fatalf("image not stored: %v", err)
	}
	if cache.n != 1 {
		t.Fatalf("cache invalidated %d times", cache.n)
	}

	byGroup, err := svc.ByGroup(ctx, g.ID, "")
	if err != nil || len(byGroup.Items) != 1 || byGroup.Items[0].Group == nil || byGroup.Items[0].Group.Slug != "cats" {
		t.Fatalf("group listing: %+v %v", byGroup.Items, err)
	}
}

func TestGetChecksAuthorUsername(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	svc := NewPostService(db, pkg.NewMediaStore(t.TempDir(), ""), nil, testLogger())
	author := mustUser(t, db, "author")
	mustUser(t, db, "other")
	p := mustPost(t, db, author, "text", time.Now())

	got, err := svc.Get(ctx, "author", p.ID)
	if err != nil || got.Author.Username != "author" {
		t.Fatalf("get: %v", err)
	}
	if _, err = svc.Get(ctx, "other", p.ID); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("wrong username: got %v", err)
	}
	if _, err = svc.Get(ctx, "author", p.ID+100); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("missing post: got %v", err)
	}
}

func TestUpdatePost(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	media := pkg.NewMediaStore(t.TempDir(), "")
	svc := NewPostService(db, media, nil, testLogger())
	author := mustUser(t, db, "author")
	intruder := mustUser(t, db, "intruder")
	created := time.Now().Add(-24 * time.Hour).Truncate(time.Second)
	p := mustPost(t, db, author, "before", created)

	post, err := svc.Get(ctx, "author", p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err = svc.Update(ctx, intruder.ID, post, PostInput{Text: "hacked"}); !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("non-author edit: got %v", err)
	}

	if err = svc.Update(ctx, author.ID, post, PostInput{Text: "after", Image: uploadFile(t, "a.png", pngBytes(t))}); err != nil {
		t.Fatal(err)
	}
	first := post.Image
	if err = svc.Update(ctx, author.ID, post, PostInput{Text: "after again", Image: uploadFile(t, "b.png", pngBytes(t))}); err != nil {
		t.Fatal(err)
	}
	if _, err = os.Stat(filepath.Join(media.Root, first)); !os.IsNotExist(err) {
		t.Fatalf("replaced image should be removed, stat err=%v", err)
	}

	reloaded, err := svc.Get(ctx, "author", p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Text != "after again" || !reloaded.CreatedAt.Equal(created) {
		t.Fatalf("text=%q created=%v want %v", reloaded.Text, reloaded.CreatedAt, created)
	}
	page, _ := svc.Index(ctx, "")
	if page.Total != 1 {
		t.Fatalf("edit must not create posts, total=%d", page.Total)
	}
}

func TestComments(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	svc := NewPostService(db, pkg.NewMediaStore(t.TempDir(), ""), nil, testLogger())
	author := mustUser(t, db, "author")
	reader := mustUser(t, db, "reader")
	p := mustPost(t, db, author, "text", time.Now())
	post := &model.Post{ID: p.ID}

	var fe *FormError
	if _, err := svc.AddComment(ctx, reader.ID, post, ""); !errors.As(err, &fe) {
		t.Fatalf("empty comment: got %v", err)
	}
	for _, text := range []string{"first", "second"} {
		if _, err := svc.AddComment(ctx, reader.ID, post, text); err != nil {
			t.Fatal(err)
		}
	}
	comments, err := svc.Comments(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(comments) != 2 || comments[0].Text != "first" || comments[1].Author.Username != "reader" {
		t.Fatalf("comments: %+v", comments)
	}
}

func TestDeletePost(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	cache := &countingCache{}
	media := pkg.NewMediaStore(t.TempDir(), "")
	svc := NewPostService(db, media, cache, testLogger())
	author := mustUser(t, db, "author")

	post, err := svc.Create(ctx, author.ID, PostInput{Text: "short lived", Image: uploadFile(t, "a.png", pngBytes(t))})
	if err != nil {
		t.Fatal(err)
	}
	if _, err = svc.AddComment(ctx, author.ID, post, "first"); err != nil {
		t.Fatal(err)
	}

	if err = svc.Delete(ctx, post.ID); err != nil {
		t.Fatal(err)
	}
	if _, err = os.Stat(filepath.Join(media.Root, post.Image)); !os.IsNotExist(err) {
		t.Fatalf("image file left behind: %v", err)
	}
	if comments, _ := svc.Comments(ctx, post.ID); len(comments) != 0 {
		t.Fatalf("comments left behind: %d", len(comments))
	}
	if cache.n != 3 {
		t.Fatalf("cache invalidated %d times, want 3", cache.n)
	}
	if err = svc.Delete(ctx, post.ID); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
}
