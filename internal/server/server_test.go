package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"atelier/internal/auth"
	"atelier/internal/config"
	"atelier/internal/models"
	"atelier/internal/storage"
	"atelier/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testJWTSecret   = "test-jwt-secret"
	testIssuer      = "atelier-api"
	testAudience    = "atelier-client"
	testMediaSecret = "test-media-secret"
)

type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	fx       *testutil.Fixtures
	resolver *auth.JWTResolver
	signer   *storage.LocalSigner
	mediaDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	resolver := auth.NewJWTResolver(testJWTSecret, testIssuer, testAudience, nil)
	signer, err := storage.NewLocalSigner("http://media.test", testMediaSecret, 15*time.Minute)
	require.NoError(t, err)

	cfg := &config.Config{Port: "0", Env: "test", MediaDir: t.TempDir()}
	srv, err := NewServerWithDeps(cfg, Deps{
		DB:       db,
		Signer:   signer,
		Resolver: resolver,
		Media:    signer,
	})
	require.NoError(t, err)

	return &testEnv{
		app:      srv.App(),
		db:       db,
		fx:       testutil.NewFixtures(t, db),
		resolver: resolver,
		signer:   signer,
		mediaDir: cfg.MediaDir,
	}
}

// request sends an authenticated request as viewer; viewer 0 sends none.
func (e *testEnv) request(t *testing.T, method, target string, viewer uint, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if viewer != 0 {
		token, err := e.resolver.Issue(viewer, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

type postResponse struct {
	Success bool               `json:"success"`
	Post    models.PostSummary `json:"post"`
}

type feedResponse struct {
	Success    bool                 `json:"success"`
	Posts      []models.PostSummary `json:"posts"`
	NextCursor *time.Time           `json:"nextCursor"`
}

type commentPageResponse struct {
	Success    bool                    `json:"success"`
	Comments   []models.CommentSummary `json:"comments"`
	NextCursor *time.Time              `json:"nextCursor"`
}

func TestNewServerWithDeps_RequiresCollaborators(t *testing.T) {
	_, err := NewServerWithDeps(&config.Config{}, Deps{})
	assert.Error(t, err)
}

func TestHealthChecks(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/health/live", 0, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/health/ready", 0, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "disabled", checks["redis"])
}

func TestAPI_RequiresBearerToken(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header"},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "garbage token", header: "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := env.app.Test(req, -1)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			body := decode[models.ErrorResponse](t, resp)
			assert.False(t, body.Success)
			assert.Equal(t, models.CodeUnauthorized, body.Code)
		})
	}
}

func TestGetPost(t *testing.T) {
	env := newTestEnv(t)
	owner := env.fx.User("owner")
	viewer := env.fx.User("viewer")
	public := env.fx.Post(owner.ID, models.VisibilityPublic)
	private := env.fx.Post(owner.ID, models.VisibilityPrivate)

	t.Run("public post", func(t *testing.T) {
		resp := env.request(t, http.MethodGet, "/api/posts/"+itoa(public.ID), viewer.ID, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decode[postResponse](t, resp)
		assert.True(t, body.Success)
		assert.Equal(t, public.ID, body.Post.ID)
		assert.Equal(t, "owner", body.Post.Author.Username)
		assert.Contains(t, body.Post.Asset.ImageURL, "http://media.test/media/assets/")
		assert.False(t, body.Post.CanEdit)
	})

	t.Run("private post of another account", func(t *testing.T) {
		resp := env.request(t, http.MethodGet, "/api/posts/"+itoa(private.ID), viewer.ID, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("owner sees private post", func(t *testing.T) {
		resp := env.request(t, http.MethodGet, "/api/posts/"+itoa(private.ID), owner.ID, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, decode[postResponse](t, resp).Post.CanEdit)
	})

	t.Run("missing post", func(t *testing.T) {
		resp := env.request(t, http.MethodGet, "/api/posts/9999", viewer.ID, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("malformed id", func(t *testing.T) {
		resp := env.request(t, http.MethodGet, "/api/posts/abc", viewer.ID, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Invalid ID", decode[models.ErrorResponse](t, resp).Error)
	})
}

func TestGetFeed_Pagination(t *testing.T) {
	env := newTestEnv(t)
	owner := env.fx.User("owner")
	viewer := env.fx.User("viewer")
	p1 := env.fx.Post(owner.ID, models.VisibilityPublic)
	p2 := env.fx.Post(owner.ID, models.VisibilityPublic)
	p3 := env.fx.Post(owner.ID, models.VisibilityPublic)

	resp := env.request(t, http.MethodGet, "/api/feed?limit=2", viewer.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[feedResponse](t, resp)
	require.Len(t, first.Posts, 2)
	assert.Equal(t, p3.ID, first.Posts[0].ID)
	assert.Equal(t, p2.ID, first.Posts[1].ID)
	require.NotNil(t, first.NextCursor)

	next := "/api/feed?limit=2&cursor=" + url.QueryEscape(first.NextCursor.Format(time.RFC3339Nano))
	resp = env.request(t, http.MethodGet, next, viewer.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decode[feedResponse](t, resp)
	require.Len(t, second.Posts, 1)
	assert.Equal(t, p1.ID, second.Posts[0].ID)
	assert.Nil(t, second.NextCursor)
}

func TestGetFeed_Scopes(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fx.User("alice")
	bob := env.fx.User("bob")
	env.fx.Post(alice.ID, models.VisibilityPublic)
	bobsFollowersOnly := env.fx.Post(bob.ID, models.VisibilityFollowers)
	env.fx.Post(bob.ID, models.VisibilityPrivate)

	resp := env.request(t, http.MethodGet, "/api/feed?scope=profile&authorId="+itoa(bob.ID), alice.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[feedResponse](t, resp).Posts)

	env.fx.Follow(alice.ID, bob.ID)
	resp = env.request(t, http.MethodGet, "/api/feed?scope=profile&authorId="+itoa(bob.ID), alice.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	posts := decode[feedResponse](t, resp).Posts
	require.Len(t, posts, 1)
	assert.Equal(t, bobsFollowersOnly.ID, posts[0].ID)
	assert.True(t, posts[0].Author.IsFollowedByViewer)
}

func TestGetFeed_BadQuery(t *testing.T) {
	env := newTestEnv(t)
	viewer := env.fx.User("viewer")

	for _, target := range []string{
		"/api/feed?cursor=yesterday",
		"/api/feed?scope=explore",
		"/api/feed?limit=ten",
		"/api/feed?scope=profile&authorId=-3",
	} {
		resp := env.request(t, http.MethodGet, target, viewer.ID, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, target)
		assert.Equal(t, models.CodeValidation, decode[models.ErrorResponse](t, resp).Code, target)
	}
}

func TestLikeAndUnlike(t *testing.T) {
	env := newTestEnv(t)
	owner := env.fx.User("owner")
	viewer := env.fx.User("viewer")
	post := env.fx.Post(owner.ID, models.VisibilityPublic)
	target := "/api/posts/" + itoa(post.ID) + "/like"

	resp := env.request(t, http.MethodPost, target, viewer.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	liked := decode[postResponse](t, resp).Post
	assert.Equal(t, 1, liked.LikeCount)
	assert.True(t, liked.IsLiked)

	resp = env.request(t, http.MethodPost, target, viewer.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[postResponse](t, resp).Post.LikeCount)

	resp = env.request(t, http.MethodDelete, target, viewer.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	unliked := decode[postResponse](t, resp).Post
	assert.Equal(t, 0, unliked.LikeCount)
	assert.False(t, unliked.IsLiked)
}

func TestLike_HiddenPostForbidden(t *testing.T) {
	env := newTestEnv(t)
	owner := env.fx.User("owner")
	viewer := env.fx.User("viewer")
	post := env.fx.Post(owner.ID, models.VisibilityFollowers)

	resp := env.request(t, http.MethodPost, "/api/posts/"+itoa(post.ID)+"/like", viewer.ID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var likes int64
	require.NoError(t, env.db.Model(&models.Like{}).Count(&likes).Error)
	assert.Zero(t, likes)
}

func TestCreatePost(t *testing.T) {
	env := newTestEnv(t)
	owner := env.fx.User("owner")
	other := env.fx.User("other")
	asset := env.fx.Asset(owner.ID)

	t.Run("asset of another account", func(t *testing.T) {
		resp := env.request(t, http.MethodPost, "/api/posts", other.ID, fiber.Map{"assetId": asset.ID})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("invalid visibility", func(t *testing.T) {
		resp := env.request(t, http.MethodPost, "/api/posts", owner.ID, fiber.Map{
			"assetId":    asset.ID,
			"visibility": "friends",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("created", func(t *testing.T) {
		resp := env.request(t, http.MethodPost, "/api/posts", owner.ID, fiber.Map{
			"assetId":    asset.ID,
			"caption":    "  first light  ",
			"hashtags":   []string{"#Sunset", "sunset", "render_01"},
			"visibility": "followers",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		post := decode[postResponse](t, resp).Post
		require.NotNil(t, post.Caption)
		assert.Equal(t, "first light", *post.Caption)
		assert.Equal(t, []string{"sunset", "render_01"}, post.Hashtags)
		assert.Equal(t, models.VisibilityFollowers, post.Visibility)
		assert.True(t, post.CanEdit)
	})

	t.Run("asset already posted", func(t *testing.T) {
		resp := env.request(t, http.MethodPost, "/api/posts", owner.ID, fiber.Map{"assetId": asset.ID})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}

func TestUpdatePostVisibility(t *testing.T) {
	env := newTestEnv(t)
	owner := env.fx.User("owner")
	other := env.fx.User("other")
	post := env.fx.Post(owner.ID, models.VisibilityPublic)
	target := "/api/posts/" + itoa(post.ID) + "/visibility"

	resp := env.request(t, http.MethodPatch, target, other.ID, fiber.Map{"visibility": "private"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.request(t, http.MethodPatch, target, owner.ID, fiber.Map{"visibility": "private"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.VisibilityPrivate, decode[postResponse](t, resp).Post.Visibility)

	resp = env.request(t, http.MethodGet, "/api/posts/"+itoa(post.ID), other.ID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestComments(t *testing.T) {
	env := newTestEnv(t)
	owner := env.fx.User("owner")
	commenter := env.fx.User("commenter")
	stranger := env.fx.User("stranger")
	post := env.fx.Post(owner.ID, models.VisibilityPublic)
	target := "/api/posts/" + itoa(post.ID) + "/comments"

	resp := env.request(t, http.MethodPost, target, commenter.ID, fiber.Map{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.request(t, http.MethodPost, target, commenter.ID, fiber.Map{"message": "lovely light"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[struct {
		Comment      models.CommentSummary `json:"comment"`
		CommentCount int                   `json:"commentCount"`
	}](t, resp)
	assert.Equal(t, 1, created.CommentCount)
	assert.Equal(t, "lovely light", created.Comment.Message)
	assert.True(t, created.Comment.CanDelete)

	resp = env.request(t, http.MethodGet, target, owner.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[commentPageResponse](t, resp)
	require.Len(t, page.Comments, 1)
	assert.True(t, page.Comments[0].CanDelete)
	assert.Nil(t, page.NextCursor)

	deleteTarget := "/api/comments/" + itoa(created.Comment.ID)
	resp = env.request(t, http.MethodDelete, deleteTarget, stranger.ID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.request(t, http.MethodDelete, deleteTarget, owner.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	deleted := decode[struct {
		CommentID    uint `json:"commentId"`
		CommentCount int  `json:"commentCount"`
	}](t, resp)
	assert.Equal(t, created.Comment.ID, deleted.CommentID)
	assert.Equal(t, 0, deleted.CommentCount)
}

func TestGetPost_IncludesCommentPage(t *testing.T) {
	env := newTestEnv(t)
	owner := env.fx.User("owner")
	post := env.fx.Post(owner.ID, models.VisibilityPublic)
	for i := 0; i < 3; i++ {
		env.fx.Comment(post.ID, owner.ID, "note "+itoa(uint(i)))
	}

	resp := env.request(t, http.MethodGet, "/api/posts/"+itoa(post.ID)+"?limit=2", owner.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[struct {
		Comments   []models.CommentSummary `json:"comments"`
		NextCursor *time.Time              `json:"nextCursor"`
	}](t, resp)
	assert.Len(t, body.Comments, 2)
	assert.NotNil(t, body.NextCursor)
}

func TestFollowAndUnfollow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fx.User("alice")
	bob := env.fx.User("bob")
	target := "/api/users/" + itoa(bob.ID) + "/follow"

	type followResponse struct {
		Author      models.AuthorSummary `json:"author"`
		IsFollowing bool                 `json:"isFollowing"`
	}

	resp := env.request(t, http.MethodPost, "/api/users/"+itoa(alice.ID)+"/follow", alice.ID, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/users/9999/follow", alice.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.request(t, http.MethodPost, target, alice.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	followed := decode[followResponse](t, resp)
	assert.True(t, followed.IsFollowing)
	assert.True(t, followed.Author.IsFollowedByViewer)
	assert.Equal(t, int64(1), followed.Author.FollowerCount)

	resp = env.request(t, http.MethodGet, "/api/users/"+itoa(alice.ID), bob.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile := decode[struct {
		Author models.AuthorSummary `json:"author"`
	}](t, resp)
	assert.True(t, profile.Author.IsFollowingViewer)
	assert.Equal(t, int64(1), profile.Author.FollowingCount)

	resp = env.request(t, http.MethodDelete, target, alice.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	unfollowed := decode[followResponse](t, resp)
	assert.False(t, unfollowed.IsFollowing)
	assert.Equal(t, int64(0), unfollowed.Author.FollowerCount)
}

func TestDependencyFailure_ReturnsGenericError(t *testing.T) {
	env := newTestEnv(t)
	viewer := env.fx.User("viewer")
	token, err := env.resolver.Issue(viewer.ID, time.Hour)
	require.NoError(t, err)

	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decode[models.ErrorResponse](t, resp)
	assert.Equal(t, "Internal server error", body.Error)
	assert.Equal(t, models.CodeInternal, body.Code)
}

func TestServeMedia(t *testing.T) {
	env := newTestEnv(t)

	dir := filepath.Join(env.mediaDir, "assets", "1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "render.png"), []byte("png-bytes"), 0o600))

	signed, err := env.signer.Sign(context.Background(), "assets/1/render.png")
	require.NoError(t, err)
	u, err := url.Parse(signed)
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		resp := env.request(t, http.MethodGet, u.RequestURI(), 0, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(body))
	})

	t.Run("token for another path", func(t *testing.T) {
		other, err := env.signer.Sign(context.Background(), "assets/1/other.png")
		require.NoError(t, err)
		ou, err := url.Parse(other)
		require.NoError(t, err)

		resp := env.request(t, http.MethodGet, u.Path+"?"+ou.RawQuery, 0, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("missing token", func(t *testing.T) {
		resp := env.request(t, http.MethodGet, u.Path, 0, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("signed but missing file", func(t *testing.T) {
		missing, err := env.signer.Sign(context.Background(), "assets/1/gone.png")
		require.NoError(t, err)
		mu, err := url.Parse(missing)
		require.NoError(t, err)

		resp := env.request(t, http.MethodGet, mu.RequestURI(), 0, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestResolveMediaPath_StaysUnderRoot(t *testing.T) {
	root := t.TempDir()
	s := &Server{config: &config.Config{MediaDir: root}}

	full, err := s.resolveMediaPath("../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "etc", "passwd"), full)
}

func TestHumanizeParam(t *testing.T) {
	assert.Equal(t, "ID", humanizeParam("id"))
	assert.Equal(t, "author ID", humanizeParam("authorId"))
	assert.Equal(t, "limit", humanizeParam("limit"))
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
