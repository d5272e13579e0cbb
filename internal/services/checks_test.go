package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/eguard/eguard-backend/internal/apperr"
	"github.com/eguard/eguard-backend/internal/models"
	"github.com/eguard/eguard-backend/internal/store/storetest"
)

type fakeLookup struct {
	outcome LookupOutcome
	err     error
	calls   int
}

func (f *fakeLookup) Lookup(_ context.Context, _ string) (LookupOutcome, error) {
	f.calls++
	return f.outcome, f.err
}

func breachedOutcome(n int) LookupOutcome {
	details := make([]models.BreachDetail, n)
	for i := range details {
		details[i] = models.BreachDetail{Name: fmt.Sprintf("Breach%d", i), Domain: "example.com", DataClasses: []string{"Passwords"}}
	}
	return LookupOutcome{
		Result:       models.BreachResult{Breached: n > 0, Count: n, Details: details},
		LookupStatus: models.LookupFound,
	}
}

func newCheckService(lookup BreachLookup) (*CheckService, *storetest.Checks) {
	checks := storetest.NewChecks()
	return NewCheckService(checks, lookup, NewCacheService(nil), time.Minute), checks
}

func TestCheckService_Check(t *testing.T) {
	svc, checks := newCheckService(&fakeLookup{outcome: breachedOutcome(2)})
	userID := primitive.NewObjectID().Hex()

	out, err := svc.Check(context.Background(), CheckInput{
		UserID: userID, Email: "  Ada@Example.COM ", IPAddress: "203.0.113.7", UserAgent: "test",
	})
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", out.Email)
	require.Equal(t, StatusCompromised, out.Status)
	require.Equal(t, 2, out.Result.Count)
	require.False(t, out.Record.ID.IsZero())
	require.Equal(t, models.SourceGateway, out.Record.Source)
	require.Equal(t, "203.0.113.7", out.Record.IPAddress)
	require.EqualValues(t, 1, out.Stats.TotalChecks)
	require.EqualValues(t, 1, out.Stats.BreachedCount)
	require.EqualValues(t, 2, out.Stats.TotalBreaches)

	all := checks.All()
	require.Len(t, all, 1)
	require.Equal(t, "ada@example.com", all[0].Email)
}

func TestCheckService_CheckValidatesInput(t *testing.T) {
	lookup := &fakeLookup{}
	svc, _ := newCheckService(lookup)

	_, err := svc.Check(context.Background(), CheckInput{Email: "a@example.com"})
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = svc.Check(context.Background(), CheckInput{UserID: primitive.NewObjectID().Hex(), Email: "  "})
	require.ErrorIs(t, err, apperr.ErrBadRequest)
	require.Equal(t, "Email is required", apperr.PublicMessage(err, ""))

	for _, email := range []string{"nope", "a@ex_ample.com", "a@1.2.3.4"} {
		_, err = svc.Check(context.Background(), CheckInput{UserID: primitive.NewObjectID().Hex(), Email: email})
		require.ErrorIs(t, err, apperr.ErrBadRequest, email)
		require.Equal(t, "Please provide a valid email address", apperr.PublicMessage(err, ""))
	}

	require.Zero(t, lookup.calls)
}

func TestCheckService_CheckRecordsUnavailableLookup(t *testing.T) {
	svc, checks := newCheckService(&fakeLookup{err: fmt.Errorf("%w: timeout", apperr.ErrLookupUnavailable)})

	out, err := svc.Check(context.Background(), CheckInput{UserID: primitive.NewObjectID().Hex(), Email: "a@example.com"})
	require.NoError(t, err)
	require.Equal(t, StatusSafe, out.Status)
	require.Equal(t, models.LookupUnavailable, out.Record.LookupStatus)
	require.Equal(t, models.LookupUnavailable, checks.All()[0].LookupStatus)
}

func TestCheckService_CheckSurvivesStatsFailure(t *testing.T) {
	svc, checks := newCheckService(&fakeLookup{outcome: breachedOutcome(1)})
	checks.StatsErr = errors.New("aggregate timed out")

	out, err := svc.Check(context.Background(), CheckInput{UserID: primitive.NewObjectID().Hex(), Email: "a@example.com"})
	require.NoError(t, err)
	require.Equal(t, models.UserStats{}, out.Stats)
	require.Len(t, checks.All(), 1)
}

func TestCheckService_Lookup(t *testing.T) {
	lookup := &fakeLookup{outcome: breachedOutcome(1)}
	svc, checks := newCheckService(lookup)

	out, err := svc.Lookup(context.Background(), "a@example.com")
	require.NoError(t, err)
	require.True(t, out.Result.Breached)
	require.Empty(t, checks.All())

	lookup.err = fmt.Errorf("%w: 503", apperr.ErrLookupUnavailable)
	_, err = svc.Lookup(context.Background(), "a@example.com")
	require.ErrorIs(t, err, apperr.ErrLookupUnavailable)
}

func TestCheckService_Log(t *testing.T) {
	svc, _ := newCheckService(&fakeLookup{})
	userID := primitive.NewObjectID().Hex()
	yes, no := true, false
	details := []models.BreachDetail{{Name: "Adobe", Domain: "adobe.com", DataClasses: []string{}}}

	rec, err := svc.Log(context.Background(), LogInput{UserID: userID, Email: "A@example.com", Breached: &yes, BreachDetails: details})
	require.NoError(t, err)
	require.Equal(t, 1, rec.Breaches)
	require.Equal(t, models.SourceClient, rec.Source)
	require.Equal(t, models.LookupClientReported, rec.LookupStatus)

	_, err = svc.Log(context.Background(), LogInput{UserID: userID, Email: "a@example.com"})
	require.ErrorIs(t, err, apperr.ErrBadRequest)
	require.Equal(t, "Email and breached status required", apperr.PublicMessage(err, ""))

	three := 3
	_, err = svc.Log(context.Background(), LogInput{UserID: userID, Email: "a@example.com", Breached: &no, Breaches: &three})
	require.ErrorIs(t, err, apperr.ErrInvalidRecord)
}

func TestCheckService_History(t *testing.T) {
	svc, _ := newCheckService(&fakeLookup{outcome: breachedOutcome(0)})
	userID := primitive.NewObjectID().Hex()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return at }
		_, err := svc.Check(context.Background(), CheckInput{UserID: userID, Email: fmt.Sprintf("u%d@example.com", i)})
		require.NoError(t, err)
	}

	page, err := svc.History(context.Background(), userID, 2, 10)
	require.NoError(t, err)
	require.Len(t, page.History, 10)
	require.Equal(t, "u14@example.com", page.History[0].Email)
	require.Equal(t, models.Pagination{CurrentPage: 2, TotalPages: 3, TotalRecords: 25, HasNext: true, HasPrev: true}, page.Pagination)
	require.EqualValues(t, 25, page.Stats.TotalChecks)
	require.Equal(t, userID, page.UserID)

	last, err := svc.History(context.Background(), userID, 3, 10)
	require.NoError(t, err)
	require.Len(t, last.History, 5)
	require.False(t, last.Pagination.HasNext)

	first, err := svc.History(context.Background(), userID, 1, 10)
	require.NoError(t, err)
	require.Equal(t, "u24@example.com", first.History[0].Email)
	require.Equal(t, models.Pagination{CurrentPage: 1, TotalPages: 3, TotalRecords: 25, HasNext: true, HasPrev: false}, first.Pagination)

	negative, err := svc.History(context.Background(), userID, -1, 10)
	require.NoError(t, err)
	require.Equal(t, first.Pagination, negative.Pagination)
	require.Equal(t, first.History, negative.History)

	defaults, err := svc.History(context.Background(), userID, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, defaults.Pagination.CurrentPage)
	require.Len(t, defaults.History, DefaultPageSize)

	empty, err := svc.History(context.Background(), primitive.NewObjectID().Hex(), 1, 10)
	require.NoError(t, err)
	require.Empty(t, empty.History)
	require.Equal(t, models.Pagination{CurrentPage: 1}, empty.Pagination)
}

func TestCheckService_HistoryPastTheEnd(t *testing.T) {
	svc, checks := newCheckService(&fakeLookup{outcome: breachedOutcome(0)})
	userID := primitive.NewObjectID().Hex()
	for i := 0; i < 25; i++ {
		_, err := svc.Check(context.Background(), CheckInput{UserID: userID, Email: fmt.Sprintf("u%d@example.com", i)})
		require.NoError(t, err)
	}

	for _, page := range []int{4, 922337203685477581, math.MaxInt} {
		checks.ListCalls = 0
		out, err := svc.History(context.Background(), userID, page, 10)
		require.NoError(t, err)
		require.NotNil(t, out.History)
		require.Empty(t, out.History)
		require.Zero(t, checks.ListCalls)
		require.Equal(t, models.Pagination{CurrentPage: page, TotalPages: 3, TotalRecords: 25, HasNext: false, HasPrev: true}, out.Pagination)
	}
}

func TestCheckService_SameEmailTwice(t *testing.T) {
	svc, checks := newCheckService(&fakeLookup{outcome: breachedOutcome(1)})
	userID := primitive.NewObjectID().Hex()

	first, err := svc.Check(context.Background(), CheckInput{UserID: userID, Email: "a@example.com"})
	require.NoError(t, err)
	second, err := svc.Check(context.Background(), CheckInput{UserID: userID, Email: "A@Example.com"})
	require.NoError(t, err)

	require.NotEqual(t, first.Record.ID, second.Record.ID)
	require.Len(t, checks.All(), 2)
	require.EqualValues(t, 2, second.Stats.TotalChecks)
	require.EqualValues(t, 1, second.Stats.UniqueEmailCount)

	stats, err := svc.Stats(context.Background(), userID)
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.TotalChecks)
	require.EqualValues(t, 1, stats.UniqueEmailCount)
}

func TestPaginate(t *testing.T) {
	require.Equal(t, models.Pagination{CurrentPage: 1, TotalPages: 1, TotalRecords: 10, HasNext: false, HasPrev: false}, Paginate(1, 10, 10))
	require.Equal(t, models.Pagination{CurrentPage: 1, TotalPages: 2, TotalRecords: 11, HasNext: true, HasPrev: false}, Paginate(1, 10, 11))
	require.Equal(t, models.Pagination{CurrentPage: 5, TotalPages: 2, TotalRecords: 11, HasNext: false, HasPrev: true}, Paginate(5, 10, 11))
	require.False(t, Paginate(math.MaxInt, 10, 25).HasNext)

	page, limit := normalizePage(-3, 1000)
	require.Equal(t, 1, page)
	require.Equal(t, MaxPageSize, limit)
}

func TestCheckService_GetAndDeleteAreOwnerScoped(t *testing.T) {
	svc, checks := newCheckService(&fakeLookup{outcome: breachedOutcome(1)})
	owner, other := primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex()

	out, err := svc.Check(context.Background(), CheckInput{UserID: owner, Email: "a@example.com"})
	require.NoError(t, err)
	id := out.Record.ID.Hex()

	_, err = svc.Get(context.Background(), other, id)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.Delete(context.Background(), other, id)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.Delete(context.Background(), owner, "not-an-object-id")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.Len(t, checks.All(), 1)

	got, err := svc.Get(context.Background(), owner, id)
	require.NoError(t, err)
	require.Equal(t, "a@example.com", got.Email)

	deleted, err := svc.Delete(context.Background(), owner, id)
	require.NoError(t, err)
	require.Equal(t, out.Record.ID, deleted.ID)
	require.Empty(t, checks.All())
}
