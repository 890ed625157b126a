package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"bibliophile/server/internal/auth"
	"bibliophile/server/internal/db"
	"bibliophile/server/internal/models"
	"bibliophile/server/internal/utils"
)

func setupUserService(t *testing.T) (IUserService, *mongo.Database) {
	database := utils.SetupTestDB(t, "test_users", db.UsersCollection)
	require.NoError(t, db.EnsureIndexes(context.Background(), database))
	return NewUserService(database), database
}

func TestUserService_RegisterIfAbsent_Idempotent(t *testing.T) {
	svc, database := setupUserService(t)
	ctx := context.Background()

	first, created, err := svc.RegisterIfAbsent(ctx, &models.User{Name: "A", Email: "a@x.io", Role: auth.RoleBuyer})
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, first.ID.IsZero())

	second, created, err := svc.RegisterIfAbsent(ctx, &models.User{Name: "Someone else", Email: "a@x.io", Role: auth.RoleSeller})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "A", second.Name, "existing record must not be merged")
	assert.Equal(t, auth.RoleBuyer, second.Role)

	count, err := database.Collection(db.UsersCollection).CountDocuments(ctx, bson.M{"email": "a@x.io"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestUserService_RegisterIfAbsent_Concurrent(t *testing.T) {
	svc, database := setupUserService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.RegisterIfAbsent(ctx, &models.User{Email: "race@x.io", Role: auth.RoleBuyer})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := database.Collection(db.UsersCollection).CountDocuments(ctx, bson.M{"email": "race@x.io"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestUserService_HasRole(t *testing.T) {
	svc, _ := setupUserService(t)
	ctx := context.Background()

	_, _, err := svc.RegisterIfAbsent(ctx, &models.User{Email: "seller@x.io", Role: auth.RoleSeller})
	require.NoError(t, err)

	ok, err := svc.HasRole(ctx, "seller@x.io", auth.RoleSeller)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasRole(ctx, "seller@x.io", auth.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.HasRole(ctx, "nobody@x.io", auth.RoleAdmin)
	require.NoError(t, err, "unknown email is not an error")
	assert.False(t, ok)
}

func TestUserService_ListByRoleAndVerify(t *testing.T) {
	svc, _ := setupUserService(t)
	ctx := context.Background()

	seller, _, err := svc.RegisterIfAbsent(ctx, &models.User{Email: "s@x.io", Role: auth.RoleSeller})
	require.NoError(t, err)
	_, _, err = svc.RegisterIfAbsent(ctx, &models.User{Email: "b@x.io", Role: auth.RoleBuyer})
	require.NoError(t, err)

	sellers, err := svc.ListByRole(ctx, auth.RoleSeller)
	require.NoError(t, err)
	require.Len(t, sellers, 1)
	assert.Equal(t, "s@x.io", sellers[0].Email)

	admins, err := svc.ListByRole(ctx, auth.RoleAdmin)
	require.NoError(t, err)
	assert.NotNil(t, admins)
	assert.Empty(t, admins)

	_, err = svc.FindVerifiedSeller(ctx, "s@x.io")
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)

	res, err := svc.SetVerifyStatus(ctx, seller.ID.Hex(), true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.MatchedCount)

	verified, err := svc.FindVerifiedSeller(ctx, "s@x.io")
	require.NoError(t, err)
	assert.True(t, verified.VerifyStatus)
}

func TestUserService_SetRole_UpsertsUnknownID(t *testing.T) {
	svc, database := setupUserService(t)
	ctx := context.Background()

	id := primitive.NewObjectID()
	res, err := svc.SetRole(ctx, id.Hex(), auth.RoleAdmin)
	require.NoError(t, err)
	assert.EqualValues(t, 0, res.MatchedCount)
	assert.EqualValues(t, 1, res.UpsertedCount)

	count, err := database.Collection(db.UsersCollection).CountDocuments(ctx, bson.M{"_id": id, "role": auth.RoleAdmin})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestUserService_DeleteUser(t *testing.T) {
	svc, _ := setupUserService(t)
	ctx := context.Background()

	user, _, err := svc.RegisterIfAbsent(ctx, &models.User{Email: "gone@x.io", Role: auth.RoleBuyer})
	require.NoError(t, err)

	deleted, err := svc.DeleteUser(ctx, user.ID.Hex())
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	deleted, err = svc.DeleteUser(ctx, user.ID.Hex())
	require.NoError(t, err)
	assert.EqualValues(t, 0, deleted)

	_, err = svc.DeleteUser(ctx, "not-an-id")
	assert.ErrorIs(t, err, ErrInvalidID)
}
