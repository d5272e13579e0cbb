package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/eguard/eguard-backend/internal/apperr"
	"github.com/eguard/eguard-backend/internal/database"
	"github.com/eguard/eguard-backend/internal/models"
)

// setupMongo starts a throwaway mongo:7 container and returns a fresh database
// with indexes in place.
func setupMongo(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping mongo integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	m, err := database.Connect(ctx, fmt.Sprintf("mongodb://%s:%s/eguard_test", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Disconnect() })

	require.NoError(t, EnsureIndexes(ctx, m.DB))
	return m.DB
}

func newCheck(userID primitive.ObjectID, email string, breaches int, at time.Time) *models.EmailCheck {
	c := &models.EmailCheck{
		UserID:       userID,
		Email:        email,
		Breached:     breaches > 0,
		Breaches:     breaches,
		CheckedAt:    at,
		LookupStatus: models.LookupNotFound,
		Source:       models.SourceGateway,
	}
	for i := 0; i < breaches; i++ {
		c.BreachDetails = append(c.BreachDetails, models.BreachDetail{
			Name: fmt.Sprintf("Breach%d", i), Domain: "example.com", DataClasses: []string{"Passwords"},
		})
	}
	if breaches > 0 {
		c.LookupStatus = models.LookupFound
	}
	return c
}

func TestUserStore(t *testing.T) {
	db := setupMongo(t)
	ctx := context.Background()
	users := NewUserStore(db)

	u := &models.User{Name: "Ada", Email: "ada@example.com", Password: "$argon2id$hash"}
	require.NoError(t, users.Create(ctx, u))
	require.False(t, u.ID.IsZero())

	got, err := users.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, "$argon2id$hash", got.Password)

	got, err = users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Ada", got.Name)

	err = users.Create(ctx, &models.User{Name: "Imposter", Email: "ada@example.com", Password: "x"})
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.Equal(t, "User already exists with this email", apperr.PublicMessage(err, ""))

	_, err = users.FindByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCheckStore_CreateRejectsInconsistentRecord(t *testing.T) {
	db := setupMongo(t)
	checks := NewCheckStore(db)

	c := newCheck(primitive.NewObjectID(), "a@example.com", 0, time.Now())
	c.Breached = true

	err := checks.Create(context.Background(), c)
	require.ErrorIs(t, err, apperr.ErrInvalidRecord)
	require.True(t, c.ID.IsZero())
}

func TestCheckStore_ListCountStats(t *testing.T) {
	db := setupMongo(t)
	ctx := context.Background()
	checks := NewCheckStore(db)

	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, c := range []*models.EmailCheck{
		newCheck(alice, "a@example.com", 2, base),
		newCheck(alice, "a@example.com", 0, base.Add(1*time.Hour)),
		newCheck(alice, "b@example.com", 3, base.Add(2*time.Hour)),
		newCheck(alice, "c@example.com", 0, base.Add(3*time.Hour)),
		newCheck(bob, "bob@example.com", 5, base.Add(4*time.Hour)),
	} {
		require.NoError(t, checks.Create(ctx, c), "record %d", i)
	}

	list, err := checks.List(ctx, alice, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 4)
	require.Equal(t, "c@example.com", list[0].Email)
	require.Equal(t, "a@example.com", list[3].Email)

	page, err := checks.List(ctx, alice, 3, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)

	n, err := checks.Count(ctx, alice)
	require.NoError(t, err)
	require.EqualValues(t, 4, n)

	stats, err := checks.Stats(ctx, alice, time.Time{})
	require.NoError(t, err)
	require.EqualValues(t, 4, stats.TotalChecks)
	require.EqualValues(t, 2, stats.BreachedCount)
	require.EqualValues(t, 2, stats.SafeCount)
	require.EqualValues(t, 5, stats.TotalBreaches)
	require.EqualValues(t, 3, stats.UniqueEmailCount)
	require.NotNil(t, stats.LastCheck)
	require.True(t, stats.LastCheck.Equal(base.Add(3*time.Hour)))

	windowed, err := checks.Stats(ctx, alice, base.Add(90*time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 2, windowed.TotalChecks)
	require.EqualValues(t, 1, windowed.BreachedCount)

	empty, err := checks.Stats(ctx, primitive.NewObjectID(), time.Time{})
	require.NoError(t, err)
	require.Equal(t, models.UserStats{}, empty)
}

func TestCheckStore_OwnershipScoping(t *testing.T) {
	db := setupMongo(t)
	ctx := context.Background()
	checks := NewCheckStore(db)

	owner, other := primitive.NewObjectID(), primitive.NewObjectID()
	c := newCheck(owner, "a@example.com", 1, time.Now())
	require.NoError(t, checks.Create(ctx, c))

	_, err := checks.FindOwned(ctx, other, c.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = checks.DeleteOwned(ctx, other, c.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := checks.FindOwned(ctx, owner, c.ID)
	require.NoError(t, err)
	require.Equal(t, c.ID, got.ID)

	deleted, err := checks.DeleteOwned(ctx, owner, c.ID)
	require.NoError(t, err)
	require.Equal(t, "a@example.com", deleted.Email)

	_, err = checks.DeleteOwned(ctx, owner, c.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
