package swipe_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/oggyb/ravematch/internal/app"
	"github.com/oggyb/ravematch/internal/cache"
	"github.com/oggyb/ravematch/internal/config"
	"github.com/oggyb/ravematch/internal/docstore"
	"github.com/oggyb/ravematch/internal/docstore/docstoretest"
	"github.com/oggyb/ravematch/internal/logger"
	"github.com/oggyb/ravematch/internal/model"
	"github.com/oggyb/ravematch/internal/server"
	"github.com/oggyb/ravematch/internal/service/swipe"
)

var now = time.Date(2026, 10, 15, 20, 0, 0, 0, time.UTC)

//
// Test helpers
//

type env struct {
	appCtx *app.AppContext
	client *swipe.Client
	redis  *miniredis.Miniredis
}

// setupService wires an in-memory SQLite store, a miniredis and the gRPC
// server over bufconn. Each test gets its own isolated DB + Redis.
func setupService(t *testing.T, jwtSecret string) *env {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	cfg.Auth.JWTSecret = jwtSecret

	redisCache := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = redisCache.Close() })

	clock := docstoretest.NewClock(now)
	appCtx, err := app.New(cfg, docstoretest.NewDB(t), redisCache, logger.Discard(), app.WithClock(clock.Now))
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := server.NewGRPCServer(appCtx.Logger, appCtx.Verifier, swipe.NewRegistrar(appCtx))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &env{appCtx: appCtx, client: swipe.NewClient(conn), redis: mr}
}

// seedMinimal writes three profiles and the likes between them:
//   - user2 → user1 (user1 can match by liking back)
//   - user3 → user1
func (e *env) seedMinimal(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, p := range []model.UserProfile{
		{UID: "user1", Name: "Ada", Country: "TR", City: "Istanbul", Age: 25, MaxDailySwipes: 20},
		{UID: "user2", Name: "Bora", Country: "TR", City: "Istanbul", Age: 27, MaxDailySwipes: 20},
		{UID: "user3", Name: "Cem", Country: "TR", City: "Izmir", Age: 31, MaxDailySwipes: 20},
	} {
		require.NoError(t, e.appCtx.Profiles.Create(ctx, p))
	}
	for _, from := range []string{"user2", "user3"} {
		_, err := e.appCtx.Engine.RecordLike(ctx, from, "user1", model.LikeTypeLike, nil)
		require.NoError(t, err)
	}
}

func code(err error) codes.Code {
	return status.Code(err)
}

//
// Tests
//

func TestGetProfileBootstrapsNewUser(t *testing.T) {
	e := setupService(t, "")

	resp, err := e.client.GetProfile(context.Background(), &swipe.UserRequest{UID: "fresh"})
	require.NoError(t, err)
	assert.Equal(t, "fresh", resp.Profile.UID)
	assert.Equal(t, "Mobile Raver", resp.Profile.Name)
	assert.Equal(t, 20, resp.Profile.MaxDailySwipes)
}

func TestSendLikeAndMutualMatch(t *testing.T) {
	ctx := context.Background()
	e := setupService(t, "")
	e.seedMinimal(t)

	resp, err := e.client.SendLike(ctx, &swipe.SendLikeRequest{ActorID: "user1", TargetID: "user2"})
	require.NoError(t, err)
	assert.True(t, resp.Matched)
	assert.Equal(t, "user1_user2", resp.MatchID)
	assert.Equal(t, 1, resp.DailySwipeCount)

	matches, err := e.client.ListMatches(ctx, &swipe.ListMatchesRequest{UID: "user2"})
	require.NoError(t, err)
	require.Len(t, matches.Matches, 1)
	assert.Equal(t, "user1", matches.Matches[0].OtherID)
	assert.Equal(t, "Ada", matches.Matches[0].OtherName)
	assert.Equal(t, now.UnixMilli(), matches.Matches[0].LastMessageAt)
}

func TestSendLikeErrorsMapToStatusCodes(t *testing.T) {
	ctx := context.Background()
	e := setupService(t, "")
	e.seedMinimal(t)

	_, err := e.client.SendLike(ctx, &swipe.SendLikeRequest{ActorID: "user1", TargetID: "user1"})
	assert.Equal(t, codes.InvalidArgument, code(err))

	_, err = e.client.SendLike(ctx, &swipe.SendLikeRequest{ActorID: "ghost", TargetID: "user1"})
	assert.Equal(t, codes.NotFound, code(err))

	_, err = e.client.SendLike(ctx, &swipe.SendLikeRequest{ActorID: "user1", TargetID: "user3", Type: model.LikeTypeSuperlike})
	assert.Equal(t, codes.PermissionDenied, code(err))
	assert.Contains(t, status.Convert(err).Message(), "SUPERLIKE_PREMIUM_ONLY")

	require.NoError(t, e.appCtx.Profiles.Update(ctx, "user1", map[string]any{"dailySwipeCount": 20, "lastSwipeDate": "2026-10-15"}))
	_, err = e.client.SendLike(ctx, &swipe.SendLikeRequest{ActorID: "user1", TargetID: "user3"})
	assert.Equal(t, codes.ResourceExhausted, code(err))
	assert.Contains(t, status.Convert(err).Message(), "SWIPE_LIMIT_REACHED")
}

func TestListLikedYouRedactsForFreeUsers(t *testing.T) {
	ctx := context.Background()
	e := setupService(t, "")
	e.seedMinimal(t)

	resp, err := e.client.ListLikedYou(ctx, &swipe.ListLikesRequest{UID: "user1"})
	require.NoError(t, err)
	require.Len(t, resp.Likes, 2)
	for _, l := range resp.Likes {
		assert.True(t, l.Redacted)
		assert.Empty(t, l.UserID)
		assert.Nil(t, l.Profile)
	}

	_, err = e.client.SetPremium(ctx, &swipe.SetPremiumRequest{UID: "user1", Premium: true})
	require.NoError(t, err)

	resp, err = e.client.ListLikedYou(ctx, &swipe.ListLikesRequest{UID: "user1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, resp.Likes, 1)
	require.NotNil(t, resp.NextPaginationToken)
	first := resp.Likes[0]

	resp, err = e.client.ListLikedYou(ctx, &swipe.ListLikesRequest{UID: "user1", Limit: 1, PaginationToken: resp.NextPaginationToken})
	require.NoError(t, err)
	require.Len(t, resp.Likes, 1)
	assert.Nil(t, resp.NextPaginationToken)

	got := []string{first.UserID, resp.Likes[0].UserID}
	assert.ElementsMatch(t, []string{"user2", "user3"}, got)
	require.NotNil(t, first.Profile)
	assert.False(t, first.Redacted)
}

func TestListMyLikes(t *testing.T) {
	ctx := context.Background()
	e := setupService(t, "")
	e.seedMinimal(t)

	resp, err := e.client.ListMyLikes(ctx, &swipe.ListLikesRequest{UID: "user2"})
	require.NoError(t, err)
	require.Len(t, resp.Likes, 1)
	assert.Equal(t, "user1", resp.Likes[0].UserID)
}

func TestCountLikedYouUsesCache(t *testing.T) {
	ctx := context.Background()
	e := setupService(t, "")
	e.seedMinimal(t)

	resp, err := e.client.CountLikedYou(ctx, &swipe.UserRequest{UID: "user1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Count)

	cached, err := e.redis.Get(e.appCtx.RedisCache.KeyForLikeCount("user1"))
	require.NoError(t, err)
	assert.Equal(t, "2", cached)

	// a new like bumps the cached counter
	_, err = e.client.GetProfile(ctx, &swipe.UserRequest{UID: "user4"})
	require.NoError(t, err)
	_, err = e.client.SendLike(ctx, &swipe.SendLikeRequest{ActorID: "user4", TargetID: "user1"})
	require.NoError(t, err)

	resp, err = e.client.CountLikedYou(ctx, &swipe.UserRequest{UID: "user1"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Count)
}

func TestFetchCandidates(t *testing.T) {
	ctx := context.Background()
	e := setupService(t, "")
	e.seedMinimal(t)

	resp, err := e.client.FetchCandidates(ctx, &swipe.UserRequest{UID: "user1"})
	require.NoError(t, err)
	var got []string
	for _, c := range resp.Candidates {
		got = append(got, c.UID)
	}
	assert.Equal(t, []string{"user2", "user3"}, got)
}

func TestProfileOperations(t *testing.T) {
	ctx := context.Background()
	e := setupService(t, "")
	e.seedMinimal(t)

	resp, err := e.client.UpdateProfile(ctx, &swipe.UpdateProfileRequest{
		UID:    "user1",
		Fields: map[string]any{"bio": "warehouse techno only", "genres": []any{"techno", "acid"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "warehouse techno only", resp.Profile.Bio)
	assert.Equal(t, []string{"techno", "acid"}, resp.Profile.Genres)
	assert.Equal(t, "Ada", resp.Profile.Name)

	_, err = e.client.UpdateProfile(ctx, &swipe.UpdateProfileRequest{UID: "user1", Fields: map[string]any{"premium": true}})
	assert.Equal(t, codes.InvalidArgument, code(err))

	resp, err = e.client.RequestVerification(ctx, &swipe.UserRequest{UID: "user1"})
	require.NoError(t, err)
	assert.Equal(t, model.VerificationPending, resp.Profile.VerificationStatus)

	_, err = e.client.Boost(ctx, &swipe.UserRequest{UID: "user1"})
	assert.Equal(t, codes.PermissionDenied, code(err))

	_, err = e.client.SetPremium(ctx, &swipe.SetPremiumRequest{UID: "user1", Premium: true})
	require.NoError(t, err)
	boost, err := e.client.Boost(ctx, &swipe.UserRequest{UID: "user1"})
	require.NoError(t, err)
	assert.Equal(t, now.Add(5*time.Minute).UnixMilli(), boost.BoostUntil)
}

func TestSendFirstMessage(t *testing.T) {
	ctx := context.Background()
	e := setupService(t, "")
	e.seedMinimal(t)

	_, err := e.client.SendFirstMessage(ctx, &swipe.FirstMessageRequest{ActorID: "user1", OtherID: "user3", Text: "hi"})
	assert.Equal(t, codes.FailedPrecondition, code(err))

	_, err = e.appCtx.Engine.RecordLike(ctx, "user1", "user3", model.LikeTypeLike, nil)
	require.NoError(t, err)
	resp, err := e.client.SendFirstMessage(ctx, &swipe.FirstMessageRequest{ActorID: "user1", OtherID: "user3", Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "user1_user3", resp.MatchID)
}

func TestWatchProfileStreamsChanges(t *testing.T) {
	e := setupService(t, "")
	e.seedMinimal(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := e.client.WatchProfile(ctx, &swipe.UserRequest{UID: "user1"})
	require.NoError(t, err)

	first, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "Ada", first.Profile.Name)

	_, err = e.client.UpdateProfile(ctx, &swipe.UpdateProfileRequest{UID: "user1", Fields: map[string]any{"name": "Ada L."}})
	require.NoError(t, err)

	for {
		next, err := stream.Recv()
		require.NoError(t, err)
		if next.Profile.Name == "Ada L." {
			break
		}
	}
}

func TestAuthRequiresMatchingSubject(t *testing.T) {
	ctx := context.Background()
	e := setupService(t, "test-secret")
	e.seedMinimal(t)

	_, err := e.client.GetProfile(ctx, &swipe.UserRequest{UID: "user1"})
	assert.Equal(t, codes.Unauthenticated, code(err))

	token, err := e.appCtx.Verifier.Sign("user1", time.Hour)
	require.NoError(t, err)
	authed := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)

	resp, err := e.client.GetProfile(authed, &swipe.UserRequest{UID: "user1"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", resp.Profile.Name)

	_, err = e.client.SendLike(authed, &swipe.SendLikeRequest{ActorID: "user2", TargetID: "user1"})
	assert.Equal(t, codes.PermissionDenied, code(err))
}

func TestUpdateProfileRejectsMistypedValues(t *testing.T) {
	ctx := context.Background()
	e := setupService(t, "")
	e.seedMinimal(t)

	_, err := e.client.UpdateProfile(ctx, &swipe.UpdateProfileRequest{UID: "user3", Fields: map[string]any{"age": "thirty"}})
	assert.Equal(t, codes.InvalidArgument, code(err))
	_, err = e.client.UpdateProfile(ctx, &swipe.UpdateProfileRequest{UID: "user3", Fields: map[string]any{"age": 25.5}})
	assert.Equal(t, codes.InvalidArgument, code(err))

	resp, err := e.client.GetProfile(ctx, &swipe.UserRequest{UID: "user3"})
	require.NoError(t, err)
	assert.Equal(t, 31, resp.Profile.Age)

	cands, err := e.client.FetchCandidates(ctx, &swipe.UserRequest{UID: "user1"})
	require.NoError(t, err)
	assert.Len(t, cands.Candidates, 2)
}

func TestFetchCandidatesSkipsCorruptProfiles(t *testing.T) {
	ctx := context.Background()
	e := setupService(t, "")
	e.seedMinimal(t)

	require.NoError(t, e.appCtx.Store.Set(ctx, model.CollectionUsers, "user3", docstore.Fields{"age": "thirty"}, docstore.MergeAll))

	resp, err := e.client.FetchCandidates(ctx, &swipe.UserRequest{UID: "user1"})
	require.NoError(t, err)
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, "user2", resp.Candidates[0].UID)
}

func TestListLikedYouShowsLiveProfilesToPremium(t *testing.T) {
	ctx := context.Background()
	e := setupService(t, "")
	e.seedMinimal(t)

	_, err := e.client.SetPremium(ctx, &swipe.SetPremiumRequest{UID: "user1", Premium: true})
	require.NoError(t, err)
	require.NoError(t, e.appCtx.Profiles.Update(ctx, "user2", map[string]any{"name": "Bora B."}))

	resp, err := e.client.ListLikedYou(ctx, &swipe.ListLikesRequest{UID: "user1"})
	require.NoError(t, err)
	names := map[string]string{}
	for _, l := range resp.Likes {
		require.NotNil(t, l.Profile)
		names[l.UserID] = l.Profile.Name
	}
	assert.Equal(t, map[string]string{"user2": "Bora B.", "user3": "Cem"}, names)
}

func TestWatchMatchesStreamsNewMatches(t *testing.T) {
	e := setupService(t, "")
	e.seedMinimal(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := e.client.WatchMatches(ctx, &swipe.ListMatchesRequest{UID: "user1"})
	require.NoError(t, err)

	first, err := stream.Recv()
	require.NoError(t, err)
	assert.Empty(t, first.Matches)

	_, err = e.client.SendLike(ctx, &swipe.SendLikeRequest{ActorID: "user1", TargetID: "user2"})
	require.NoError(t, err)

	for {
		next, err := stream.Recv()
		require.NoError(t, err)
		if len(next.Matches) == 0 {
			continue
		}
		require.Len(t, next.Matches, 1)
		assert.Equal(t, "user1_user2", next.Matches[0].ID)
		assert.Equal(t, "user2", next.Matches[0].OtherID)
		assert.Equal(t, "Bora", next.Matches[0].OtherName)
		break
	}
}

func TestWatchMatchesRequiresMatchingSubject(t *testing.T) {
	e := setupService(t, "test-secret")

	token, err := e.appCtx.Verifier.Sign("user1", time.Hour)
	require.NoError(t, err)
	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)

	stream, err := e.client.WatchMatches(ctx, &swipe.ListMatchesRequest{UID: "user2"})
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.Equal(t, codes.PermissionDenied, code(err))
}
