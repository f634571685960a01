package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/snapgram/internal/cache"
	"github.com/weiawesome/snapgram/internal/config"
	"github.com/weiawesome/snapgram/internal/domain"
	"github.com/weiawesome/snapgram/internal/media"
	"github.com/weiawesome/snapgram/internal/repository"
	"github.com/weiawesome/snapgram/internal/search"
	"github.com/weiawesome/snapgram/internal/service"
	"github.com/weiawesome/snapgram/pkg/database"
	"github.com/weiawesome/snapgram/pkg/idgen"
	"github.com/weiawesome/snapgram/pkg/jwt"
	"github.com/weiawesome/snapgram/pkg/middleware"
	"github.com/weiawesome/snapgram/pkg/pubsub"
	"github.com/weiawesome/snapgram/pkg/storage"
)

const testSecret = "test-secret"

type testServer struct {
	t      *testing.T
	engine *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

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
	if err := repository.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	gen := idgen.NewUUIDGenerator()
	users := repository.NewGormUserRepository(db, gen)
	posts := repository.NewGormPostRepository(db, gen)
	comments := repository.NewGormCommentRepository(db, gen)

	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}

	tokens, err := jwt.NewManager(jwt.Config{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	pub := pubsub.NoopPublisher{}
	postCache := cache.NoopPostCache{}
	feed := config.FeedConfig{DefaultLimit: 10, MaxLimit: 100, MaxAll: 500, UserListLimit: 50}

	svc := Services{
		Auth:     service.NewAuthService(users, tokens, pub),
		Users:    service.NewUserService(users, posts, comments, pub, feed.UserListLimit, feed.MaxAll),
		Posts:    service.NewPostService(posts, comments, users, search.NewDatabaseEngine(posts), postCache, time.Minute, pub, feed),
		Comments: service.NewCommentService(comments, posts, users, postCache, pub),
		Media: service.NewMediaService(
			media.NewProcessor(store, gen, config.MediaConfig{KeyPrefix: "posts/"}),
			store, gen, time.Minute,
		),
	}

	r := gin.New()
	NewHandler(svc, middleware.NewAuthMiddleware(tokens), 1<<20).RegisterRoutes(r)
	return &testServer{t: t, engine: r}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d, body %s", w.Code, want, w.Body.String())
	}
}

// register creates a user and returns its token and id.
func (s *testServer) register(username string) (string, string) {
	s.t.Helper()
	w := s.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
	})
	expectStatus(s.t, w, http.StatusCreated)

	var auth domain.AuthResponse
	decode(s.t, w, &auth)
	if auth.Token == "" || auth.Message == "" {
		s.t.Fatalf("register response = %+v", auth)
	}

	w = s.do(http.MethodGet, "/auth/me", auth.Token, nil)
	expectStatus(s.t, w, http.StatusOK)
	var me domain.UserProfile
	decode(s.t, w, &me)
	return auth.Token, me.ID
}

func (s *testServer) createPost(token, caption string) domain.Post {
	s.t.Helper()
	w := s.do(http.MethodPost, "/post", token, map[string]string{
		"caption":   caption,
		"media_url": "https://cdn.example.com/" + caption + ".jpg",
	})
	expectStatus(s.t, w, http.StatusCreated)
	var p domain.Post
	decode(s.t, w, &p)
	return p
}

func TestAuthRejectsMissingAndForeignTokens(t *testing.T) {
	s := newTestServer(t)

	expectStatus(t, s.do(http.MethodGet, "/post", "", nil), http.StatusUnauthorized)

	other, _ := jwt.NewManager(jwt.Config{Secret: "someone-else"})
	foreign, _, _ := other.Generate("u1", "mallory")
	expectStatus(t, s.do(http.MethodGet, "/post", foreign, nil), http.StatusUnauthorized)

	short, _ := jwt.NewManager(jwt.Config{Secret: testSecret, Expiry: time.Millisecond})
	stale, _, _ := short.Generate("u1", "old")
	time.Sleep(1100 * time.Millisecond)
	expectStatus(t, s.do(http.MethodGet, "/post", stale, nil), http.StatusUnauthorized)
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)
	s.register("alice")

	w := s.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice2",
		"email":    "alice@example.com",
		"password": "secret123",
	})
	expectStatus(t, w, http.StatusInternalServerError)

	w = s.do(http.MethodPost, "/auth/login", "", map[string]string{"login": "alice", "password": "secret123"})
	expectStatus(t, w, http.StatusOK)
	w = s.do(http.MethodPost, "/auth/login", "", map[string]string{"login": "alice@example.com", "password": "secret123"})
	expectStatus(t, w, http.StatusOK)

	w = s.do(http.MethodPost, "/auth/login", "", map[string]string{"login": "alice", "password": "wrong-pass"})
	expectStatus(t, w, http.StatusUnauthorized)
	w = s.do(http.MethodPost, "/auth/login", "", map[string]string{"login": "nobody", "password": "secret123"})
	expectStatus(t, w, http.StatusNotFound)
}

func TestPostRoundTrip(t *testing.T) {
	s := newTestServer(t)
	token, userID := s.register("alice")
	created := s.createPost(token, "beach")

	w := s.do(http.MethodGet, "/post/"+created.ID, token, nil)
	expectStatus(t, w, http.StatusOK)
	var got domain.Post
	decode(t, w, &got)
	if got.Caption != "beach" || got.MediaURL != "https://cdn.example.com/beach.jpg" {
		t.Fatalf("post = %+v", got)
	}
	if got.Owner == nil || got.Owner.ID != userID {
		t.Fatalf("owner = %+v, want %s", got.Owner, userID)
	}

	expectStatus(t, s.do(http.MethodGet, "/post/missing", token, nil), http.StatusNotFound)
}

func TestFeedPagingMatchesAll(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register("alice")
	for i := 0; i < 5; i++ {
		s.createPost(token, fmt.Sprintf("p%d", i))
	}

	w := s.do(http.MethodGet, "/post?all=true", token, nil)
	expectStatus(t, w, http.StatusOK)
	var all domain.PostPage
	decode(t, w, &all)
	if len(all.Posts) != 5 || all.NextCursor != nil {
		t.Fatalf("all=true returned %d posts, nextCursor %v", len(all.Posts), all.NextCursor)
	}

	var paged []string
	seen := map[string]bool{}
	path := "/post?limit=2"
	for i := 0; i < 5; i++ {
		w := s.do(http.MethodGet, path, token, nil)
		expectStatus(t, w, http.StatusOK)
		var page domain.PostPage
		decode(t, w, &page)
		for _, p := range page.Posts {
			if seen[p.ID] {
				t.Fatalf("post %s repeated", p.ID)
			}
			seen[p.ID] = true
			paged = append(paged, p.ID)
		}
		if page.NextCursor == nil {
			break
		}
		path = "/post?limit=2&cursor=" + *page.NextCursor
	}

	if len(paged) != len(all.Posts) {
		t.Fatalf("paged %d posts, all=true %d", len(paged), len(all.Posts))
	}
	for i := range paged {
		if paged[i] != all.Posts[i].ID {
			t.Fatalf("order differs at %d", i)
		}
	}

	expectStatus(t, s.do(http.MethodGet, "/post?limit=zero", token, nil), http.StatusBadRequest)
	expectStatus(t, s.do(http.MethodGet, "/post?limit=0", token, nil), http.StatusBadRequest)
	expectStatus(t, s.do(http.MethodGet, "/post?cursor=nope", token, nil), http.StatusBadRequest)
}

func TestSearchRequiresQuery(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register("alice")
	s.createPost(token, "Sunset")
	s.createPost(token, "lunch")

	expectStatus(t, s.do(http.MethodGet, "/post/search?q=", token, nil), http.StatusBadRequest)

	w := s.do(http.MethodGet, "/post/search?q=SUN", token, nil)
	expectStatus(t, w, http.StatusOK)
	var page domain.PostPage
	decode(t, w, &page)
	if len(page.Posts) != 1 || page.Posts[0].Caption != "Sunset" {
		t.Fatalf("search = %+v", page.Posts)
	}
}

func TestCommentRules(t *testing.T) {
	s := newTestServer(t)
	alice, aliceID := s.register("alice")
	bob, bobID := s.register("bob")
	post := s.createPost(alice, "post")

	missing := "does-not-exist"
	w := s.do(http.MethodPost, "/comment", bob, map[string]interface{}{
		"postId": post.ID, "body": "hi", "authorId": bobID, "parentCommentId": missing,
	})
	expectStatus(t, w, http.StatusNotFound)

	w = s.do(http.MethodPost, "/comment", bob, map[string]interface{}{
		"postId": post.ID, "body": "hi", "authorId": aliceID,
	})
	expectStatus(t, w, http.StatusForbidden)

	w = s.do(http.MethodGet, "/comment?postId="+post.ID, bob, nil)
	expectStatus(t, w, http.StatusOK)
	var listed []domain.Comment
	decode(t, w, &listed)
	if len(listed) != 0 {
		t.Fatalf("rejected comments were written: %v", listed)
	}

	w = s.do(http.MethodPost, "/comment", bob, map[string]interface{}{
		"postId": post.ID, "body": "top", "authorId": bobID,
	})
	expectStatus(t, w, http.StatusCreated)
	var top domain.Comment
	decode(t, w, &top)

	w = s.do(http.MethodPost, "/comment", alice, map[string]interface{}{
		"postId": post.ID, "body": "reply", "parentCommentId": top.ID,
	})
	expectStatus(t, w, http.StatusCreated)
	var reply domain.Comment
	decode(t, w, &reply)

	w = s.do(http.MethodPost, "/comment", alice, map[string]interface{}{
		"postId": post.ID, "body": "too deep", "parentCommentId": reply.ID,
	})
	expectStatus(t, w, http.StatusBadRequest)

	w = s.do(http.MethodGet, "/post/"+post.ID, alice, nil)
	expectStatus(t, w, http.StatusOK)
	var got domain.Post
	decode(t, w, &got)
	if len(got.Comments) != 1 || len(got.Comments[0].Replies) != 1 {
		t.Fatalf("comment tree = %+v", got.Comments)
	}
	if got.Count == nil || got.Count.Comments != 2 {
		t.Fatalf("count = %+v", got.Count)
	}

	expectStatus(t, s.do(http.MethodDelete, "/comment/"+top.ID, alice, nil), http.StatusNotFound)
	expectStatus(t, s.do(http.MethodDelete, "/comment/"+top.ID, bob, nil), http.StatusOK)
}

func TestLikeTwiceIsOneMembership(t *testing.T) {
	s := newTestServer(t)
	alice, _ := s.register("alice")
	bob, bobID := s.register("bob")
	post := s.createPost(alice, "post")

	var m domain.Membership
	for i := 0; i < 2; i++ {
		w := s.do(http.MethodPost, "/user/like/post", bob, map[string]string{"id": post.ID, "userId": bobID})
		expectStatus(t, w, http.StatusOK)
		decode(t, w, &m)
	}
	if len(m.Members) != 1 || m.Members[0].ID != bobID || m.Relation != "liked_by" {
		t.Fatalf("membership = %+v", m)
	}

	w := s.do(http.MethodPost, "/user/like/post", alice, map[string]string{"id": post.ID, "userId": bobID})
	expectStatus(t, w, http.StatusForbidden)
	w = s.do(http.MethodPost, "/user/save/post", bob, map[string]string{"id": "missing"})
	expectStatus(t, w, http.StatusNotFound)

	w = s.do(http.MethodPost, "/user/unlike/post", bob, map[string]string{"id": post.ID})
	expectStatus(t, w, http.StatusOK)
	decode(t, w, &m)
	if len(m.Members) != 0 {
		t.Fatalf("members after unlike = %v", m.Members)
	}
}

func TestPostMutationsAreOwnerScoped(t *testing.T) {
	s := newTestServer(t)
	alice, _ := s.register("alice")
	bob, _ := s.register("bob")
	post := s.createPost(alice, "mine")

	w := s.do(http.MethodPut, "/post/"+post.ID, bob, map[string]string{"caption": "x"})
	expectStatus(t, w, http.StatusNotFound)
	expectStatus(t, s.do(http.MethodDelete, "/post/"+post.ID, bob, nil), http.StatusNotFound)

	w = s.do(http.MethodPut, "/post/"+post.ID, alice, map[string]string{"caption": "edited"})
	expectStatus(t, w, http.StatusOK)
	expectStatus(t, s.do(http.MethodDelete, "/post/"+post.ID, alice, nil), http.StatusOK)
	expectStatus(t, s.do(http.MethodGet, "/post/"+post.ID, alice, nil), http.StatusNotFound)
}

func TestUpdateUser(t *testing.T) {
	s := newTestServer(t)
	alice, aliceID := s.register("alice")
	_, bobID := s.register("bob")

	w := s.do(http.MethodPut, "/user", alice, map[string]interface{}{"id": bobID, "data": map[string]string{"bio": "x"}})
	expectStatus(t, w, http.StatusForbidden)

	w = s.do(http.MethodPut, "/user", alice, map[string]interface{}{"id": aliceID, "data": map[string]string{"username": "bob"}})
	expectStatus(t, w, http.StatusConflict)

	w = s.do(http.MethodPut, "/user", alice, map[string]interface{}{"id": aliceID, "data": map[string]string{"bio": "hello"}})
	expectStatus(t, w, http.StatusOK)
	var u domain.User
	decode(t, w, &u)
	if u.Bio != "hello" {
		t.Fatalf("bio = %q", u.Bio)
	}

	w = s.do(http.MethodGet, "/user?limit=1", alice, nil)
	expectStatus(t, w, http.StatusOK)
	var list []domain.UserPreview
	decode(t, w, &list)
	if len(list) != 1 || list[0].Username != "alice" {
		t.Fatalf("user list = %v", list)
	}
}

func TestPresignNeedsObjectStore(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register("alice")
	w := s.do(http.MethodPost, "/media/presign", token, map[string]string{"content_type": "image/jpeg"})
	expectStatus(t, w, http.StatusBadRequest)
}
