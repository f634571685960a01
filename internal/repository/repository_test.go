package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/weiawesome/snapgram/internal/domain"
	"github.com/weiawesome/snapgram/pkg/database"
	"github.com/weiawesome/snapgram/pkg/idgen"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		FilePath:     fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

type repos struct {
	users    *GormUserRepository
	posts    *GormPostRepository
	comments *GormCommentRepository
}

func newRepos(t *testing.T) repos {
	t.Helper()
	db := newTestDB(t)
	gen := idgen.NewUUIDGenerator()
	return repos{
		users:    NewGormUserRepository(db, gen),
		posts:    NewGormPostRepository(db, gen),
		comments: NewGormCommentRepository(db, gen),
	}
}

func mustUser(t *testing.T, r repos, username string) *domain.User {
	t.Helper()
	u := &domain.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	if err := r.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func mustPost(t *testing.T, r repos, ownerID, caption string, at time.Time) *domain.Post {
	t.Helper()
	p := &domain.Post{OwnerID: ownerID, Caption: caption, MediaURL: "https://cdn/x.jpg", Timestamp: at}
	if err := r.posts.Create(context.Background(), p); err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

func mustComment(t *testing.T, r repos, postID, authorID string, parent *string, at time.Time) *domain.Comment {
	t.Helper()
	c := &domain.Comment{PostID: postID, AuthorID: authorID, Body: "hi", ParentCommentID: parent, Timestamp: at}
	if err := r.comments.Create(context.Background(), c); err != nil {
		t.Fatalf("create comment: %v", err)
	}
	return c
}

func TestUserRepositoryUniqueAndLogin(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	alice := mustUser(t, r, "alice")

	dup := &domain.User{Username: "other", Email: "alice@example.com", PasswordHash: "x"}
	if err := r.users.Create(ctx, dup); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("duplicate email err = %v, want ErrEmailExists", err)
	}

	for _, login := range []string{"alice", "alice@example.com"} {
		got, err := r.users.GetByLogin(ctx, login)
		if err != nil || got.ID != alice.ID {
			t.Fatalf("GetByLogin(%q) = %v, %v", login, got, err)
		}
	}
	if _, err := r.users.GetByLogin(ctx, "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("GetByLogin(nobody) err = %v", err)
	}

	bob := mustUser(t, r, "bob")
	taken := "alice"
	if _, err := r.users.Update(ctx, bob.ID, &domain.UserUpdateFields{Username: &taken}); !errors.Is(err, ErrUsernameExists) {
		t.Fatalf("Update to taken username err = %v", err)
	}

	bio := "hello"
	updated, err := r.users.Update(ctx, bob.ID, &domain.UserUpdateFields{Bio: &bio})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Bio != "hello" || updated.Username != "bob" {
		t.Fatalf("Update = %+v", updated)
	}
}

func TestUserRepositoryTranslatesDuplicates(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	mustUser(t, r, "alice")

	dup := &domain.User{Username: "alice", Email: "fresh@example.com", PasswordHash: "x"}
	if err := r.users.Create(ctx, dup); !errors.Is(err, ErrUsernameExists) {
		t.Fatalf("duplicate username err = %v, want ErrUsernameExists", err)
	}

	err := r.users.db.Create(&domain.UserModel{ID: "raw", Username: "alice", Email: "raw@example.com"}).Error
	if !database.IsUniqueViolation(err) {
		t.Fatalf("raw insert err = %v, want a unique violation", err)
	}
}

func TestUserRepositoryEmptyUpdate(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	alice := mustUser(t, r, "alice")

	got, err := r.users.Update(ctx, alice.ID, &domain.UserUpdateFields{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.ID != alice.ID || got.Username != "alice" || got.Email != alice.Email {
		t.Fatalf("Update = %+v, want unchanged %+v", got, alice)
	}

	if _, err := r.users.Update(ctx, "missing", &domain.UserUpdateFields{}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("Update(missing) err = %v, want ErrUserNotFound", err)
	}
}

func TestPostListPagesWithoutRepeats(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	u := mustUser(t, r, "alice")

	// Two posts share a timestamp so the id tie-break is exercised.
	want := make(map[string]bool)
	for i := 0; i < 7; i++ {
		at := base.Add(time.Duration(i/2) * time.Minute)
		want[mustPost(t, r, u.ID, fmt.Sprintf("p%d", i), at).ID] = true
	}

	seen := make(map[string]bool)
	var prev *domain.Post
	cursor := ""
	for pages := 0; pages < 10; pages++ {
		posts, err := r.posts.List(ctx, domain.PageRequest{Cursor: cursor, Limit: 3})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		for i := range posts {
			p := posts[i]
			if seen[p.ID] {
				t.Fatalf("post %s returned twice", p.ID)
			}
			seen[p.ID] = true
			if prev != nil {
				if p.Timestamp.After(prev.Timestamp) ||
					(p.Timestamp.Equal(prev.Timestamp) && p.ID > prev.ID) {
					t.Fatalf("posts out of order: %s after %s", p.ID, prev.ID)
				}
			}
			prev = &p
		}
		if len(posts) < 3 {
			break
		}
		cursor = posts[len(posts)-1].ID
	}

	if len(seen) != len(want) {
		t.Fatalf("saw %d posts, want %d", len(seen), len(want))
	}
	for id := range want {
		if !seen[id] {
			t.Fatalf("post %s never returned", id)
		}
	}
}

func TestPostListInvalidCursor(t *testing.T) {
	r := newRepos(t)
	_, err := r.posts.List(context.Background(), domain.PageRequest{Cursor: "missing", Limit: 10})
	if !errors.Is(err, ErrInvalidCursor) {
		t.Fatalf("err = %v, want ErrInvalidCursor", err)
	}
}

func TestPostSearchIgnoresCaseAndEscapes(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	u := mustUser(t, r, "alice")
	sunset := mustPost(t, r, u.ID, "Golden SUNSET at the pier", base)
	mustPost(t, r, u.ID, "breakfast", base.Add(time.Minute))
	pct := mustPost(t, r, u.ID, "100% fun", base.Add(2*time.Minute))

	got, err := r.posts.Search(ctx, "sunset", domain.PageRequest{Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].ID != sunset.ID {
		t.Fatalf("Search(sunset) = %v", got)
	}

	got, err = r.posts.Search(ctx, "%", domain.PageRequest{Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].ID != pct.ID {
		t.Fatalf("Search(%%) should only match a literal percent, got %d posts", len(got))
	}
}

func TestPostRelationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	alice := mustUser(t, r, "alice")
	bob := mustUser(t, r, "bob")
	p := mustPost(t, r, alice.ID, "hi", base)

	for i := 0; i < 2; i++ {
		if err := r.posts.AddRelation(ctx, RelationLike, p.ID, bob.ID); err != nil {
			t.Fatalf("AddRelation: %v", err)
		}
	}
	members, err := r.posts.Members(ctx, RelationLike, p.ID)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 1 || members[0].ID != bob.ID {
		t.Fatalf("Members = %v", members)
	}

	liked, err := r.posts.ListByRelation(ctx, RelationLike, bob.ID, 0)
	if err != nil || len(liked) != 1 {
		t.Fatalf("ListByRelation = %v, %v", liked, err)
	}

	for i := 0; i < 2; i++ {
		if err := r.posts.RemoveRelation(ctx, RelationLike, p.ID, bob.ID); err != nil {
			t.Fatalf("RemoveRelation: %v", err)
		}
	}
	members, _ = r.posts.Members(ctx, RelationLike, p.ID)
	if len(members) != 0 {
		t.Fatalf("Members after unlike = %v", members)
	}
}

func TestPostOwnerScopedWrites(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	alice := mustUser(t, r, "alice")
	bob := mustUser(t, r, "bob")
	p := mustPost(t, r, alice.ID, "mine", base)

	caption := "stolen"
	if _, err := r.posts.UpdateOwned(ctx, p.ID, bob.ID, &domain.UpdatePostRequest{Caption: &caption}); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("UpdateOwned by non-owner err = %v", err)
	}
	if _, err := r.posts.DeleteOwned(ctx, p.ID, bob.ID); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("DeleteOwned by non-owner err = %v", err)
	}

	caption = "edited"
	updated, err := r.posts.UpdateOwned(ctx, p.ID, alice.ID, &domain.UpdatePostRequest{Caption: &caption})
	if err != nil || updated.Caption != "edited" {
		t.Fatalf("UpdateOwned = %v, %v", updated, err)
	}
}

func TestPostDeleteRemovesCommentsAndRelations(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	alice := mustUser(t, r, "alice")
	bob := mustUser(t, r, "bob")
	p := mustPost(t, r, alice.ID, "bye", base)
	c := mustComment(t, r, p.ID, bob.ID, nil, base.Add(time.Second))
	if err := r.comments.Like(ctx, c.ID, alice.ID); err != nil {
		t.Fatalf("Like: %v", err)
	}
	if err := r.posts.AddRelation(ctx, RelationSave, p.ID, bob.ID); err != nil {
		t.Fatalf("AddRelation: %v", err)
	}

	if _, err := r.posts.DeleteOwned(ctx, p.ID, alice.ID); err != nil {
		t.Fatalf("DeleteOwned: %v", err)
	}
	if _, err := r.posts.GetByID(ctx, p.ID); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("GetByID after delete err = %v", err)
	}
	if _, err := r.comments.GetByID(ctx, c.ID); !errors.Is(err, ErrCommentNotFound) {
		t.Fatalf("comment survived post delete: %v", err)
	}
	saved, _ := r.posts.ListByRelation(ctx, RelationSave, bob.ID, 0)
	if len(saved) != 0 {
		t.Fatalf("saved posts after delete = %v", saved)
	}
	liked, _ := r.comments.ListLikedBy(ctx, alice.ID, 0)
	if len(liked) != 0 {
		t.Fatalf("liked comments after delete = %v", liked)
	}
}

func TestCommentListingOrderAndCounts(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	alice := mustUser(t, r, "alice")
	p := mustPost(t, r, alice.ID, "post", base)

	older := mustComment(t, r, p.ID, alice.ID, nil, base.Add(time.Minute))
	newer := mustComment(t, r, p.ID, alice.ID, nil, base.Add(2*time.Minute))
	r2 := mustComment(t, r, p.ID, alice.ID, &older.ID, base.Add(4*time.Minute))
	r1 := mustComment(t, r, p.ID, alice.ID, &older.ID, base.Add(3*time.Minute))
	if err := r.comments.Like(ctx, older.ID, alice.ID); err != nil {
		t.Fatalf("Like: %v", err)
	}

	top, err := r.comments.ListTopLevel(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListTopLevel: %v", err)
	}
	if len(top) != 2 || top[0].ID != newer.ID || top[1].ID != older.ID {
		t.Fatalf("ListTopLevel order wrong: %v", top)
	}
	if top[1].Count.Replies != 2 || top[1].Count.LikedBy != 1 {
		t.Fatalf("counts = %+v", top[1].Count)
	}

	replies, err := r.comments.ListReplies(ctx, older.ID)
	if err != nil {
		t.Fatalf("ListReplies: %v", err)
	}
	if len(replies) != 2 || replies[0].ID != r1.ID || replies[1].ID != r2.ID {
		t.Fatalf("ListReplies order wrong: %v", replies)
	}

	all, err := r.comments.ListByPost(ctx, p.ID)
	if err != nil || len(all) != 4 {
		t.Fatalf("ListByPost = %d, %v", len(all), err)
	}
}

func TestCommentAuthorScopedDelete(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	alice := mustUser(t, r, "alice")
	bob := mustUser(t, r, "bob")
	p := mustPost(t, r, alice.ID, "post", base)
	top := mustComment(t, r, p.ID, alice.ID, nil, base.Add(time.Minute))
	reply := mustComment(t, r, p.ID, bob.ID, &top.ID, base.Add(2*time.Minute))

	if _, err := r.comments.UpdateOwned(ctx, top.ID, bob.ID, "x"); !errors.Is(err, ErrCommentNotFound) {
		t.Fatalf("UpdateOwned by non-author err = %v", err)
	}
	if _, err := r.comments.DeleteOwned(ctx, top.ID, bob.ID); !errors.Is(err, ErrCommentNotFound) {
		t.Fatalf("DeleteOwned by non-author err = %v", err)
	}

	edited, err := r.comments.UpdateOwned(ctx, top.ID, alice.ID, "edited")
	if err != nil || edited.Body != "edited" {
		t.Fatalf("UpdateOwned = %v, %v", edited, err)
	}

	if _, err := r.comments.DeleteOwned(ctx, top.ID, alice.ID); err != nil {
		t.Fatalf("DeleteOwned: %v", err)
	}
	if _, err := r.comments.GetByID(ctx, reply.ID); !errors.Is(err, ErrCommentNotFound) {
		t.Fatalf("reply survived parent delete: %v", err)
	}
}

func TestCommentLikesAreIdempotent(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	alice := mustUser(t, r, "alice")
	bob := mustUser(t, r, "bob")
	p := mustPost(t, r, alice.ID, "post", base)
	c := mustComment(t, r, p.ID, alice.ID, nil, base.Add(time.Minute))

	for i := 0; i < 2; i++ {
		if err := r.comments.Like(ctx, c.ID, bob.ID); err != nil {
			t.Fatalf("Like: %v", err)
		}
	}
	likers, err := r.comments.Likers(ctx, c.ID)
	if err != nil || len(likers) != 1 {
		t.Fatalf("Likers = %v, %v", likers, err)
	}

	liked, err := r.comments.ListLikedBy(ctx, bob.ID, 0)
	if err != nil || len(liked) != 1 {
		t.Fatalf("ListLikedBy = %v, %v", liked, err)
	}
	if liked[0].Post == nil || liked[0].Post.ID != p.ID {
		t.Fatalf("liked comment post = %+v", liked[0].Post)
	}

	if err := r.comments.Unlike(ctx, c.ID, bob.ID); err != nil {
		t.Fatalf("Unlike: %v", err)
	}
	likers, _ = r.comments.Likers(ctx, c.ID)
	if len(likers) != 0 {
		t.Fatalf("Likers after unlike = %v", likers)
	}
}

func TestProfileListsRespectLimit(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	alice := mustUser(t, r, "alice")
	bob := mustUser(t, r, "bob")

	var newest *domain.Post
	var newestComment *domain.Comment
	for i := 0; i < 4; i++ {
		p := mustPost(t, r, alice.ID, fmt.Sprintf("post %d", i), base.Add(time.Duration(i)*time.Minute))
		if err := r.posts.AddRelation(ctx, RelationLike, p.ID, bob.ID); err != nil {
			t.Fatalf("AddRelation: %v", err)
		}
		c := mustComment(t, r, p.ID, alice.ID, nil, base.Add(time.Duration(i)*time.Minute))
		if err := r.comments.Like(ctx, c.ID, bob.ID); err != nil {
			t.Fatalf("Like: %v", err)
		}
		newest, newestComment = p, c
	}

	posts, err := r.posts.ListByRelation(ctx, RelationLike, bob.ID, 2)
	if err != nil {
		t.Fatalf("ListByRelation: %v", err)
	}
	if len(posts) != 2 || posts[0].ID != newest.ID {
		t.Fatalf("ListByRelation = %v, want the 2 newest", posts)
	}

	comments, err := r.comments.ListLikedBy(ctx, bob.ID, 3)
	if err != nil {
		t.Fatalf("ListLikedBy: %v", err)
	}
	if len(comments) != 3 || comments[0].ID != newestComment.ID {
		t.Fatalf("ListLikedBy = %v, want the 3 newest", comments)
	}

	all, err := r.posts.ListByRelation(ctx, RelationLike, bob.ID, 0)
	if err != nil || len(all) != 4 {
		t.Fatalf("ListByRelation(no cap) = %d, %v", len(all), err)
	}
}
