package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"bibliophile/server/internal/db"
	"bibliophile/server/internal/models"
	"bibliophile/server/internal/utils"
)

func setupBookService(t *testing.T) IBookService {
	database := utils.SetupTestDB(t, "test_books", db.BooksCollection)
	return NewBookService(database)
}

func TestBookService_CreateForcesInitialState(t *testing.T) {
	svc := setupBookService(t)
	ctx := context.Background()

	book, err := svc.Create(ctx, &models.Book{
		Name:        "Dune",
		CategoryID:  "1",
		SellerEmail: "s@x.io",
		ResalePrice: 20,
		Status:      models.BookStatusSold,
		Advertise:   true,
		Report:      true,
	})
	require.NoError(t, err)

	stored, err := svc.FindByID(ctx, book.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.BookStatusAvailable, stored.Status)
	assert.False(t, stored.Advertise)
	assert.False(t, stored.Report)
	assert.False(t, stored.PostedAt.IsZero())
}

func TestBookService_ListFilters(t *testing.T) {
	svc := setupBookService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, &models.Book{Name: "A", CategoryID: "1", SellerEmail: "s1@x.io"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, &models.Book{Name: "B", CategoryID: "1", SellerEmail: "s2@x.io"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &models.Book{Name: "C", CategoryID: "2", SellerEmail: "s1@x.io"})
	require.NoError(t, err)

	require.NoError(t, svc.MarkSold(ctx, b.ID.Hex()))
	_, err = svc.SetAdvertised(ctx, a.ID.Hex())
	require.NoError(t, err)

	all, err := svc.List(ctx, models.BookFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "A", all[0].Name, "natural order")

	available, err := svc.List(ctx, models.BookFilter{CategoryID: "1", Status: models.BookStatusAvailable})
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, a.ID, available[0].ID)

	mine, err := svc.List(ctx, models.BookFilter{SellerEmail: "s1@x.io"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	advertised, err := svc.List(ctx, models.BookFilter{Advertised: true, Status: models.BookStatusAvailable})
	require.NoError(t, err)
	require.Len(t, advertised, 1)
	assert.Equal(t, "A", advertised[0].Name)

	reported, err := svc.List(ctx, models.BookFilter{Reported: true})
	require.NoError(t, err)
	assert.NotNil(t, reported)
	assert.Empty(t, reported)
}

func TestBookService_MarkSold_DoesNotUpsert(t *testing.T) {
	svc := setupBookService(t)
	ctx := context.Background()

	err := svc.MarkSold(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)

	all, err := svc.List(ctx, models.BookFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestBookService_SetReported_UpsertsUnknownID(t *testing.T) {
	svc := setupBookService(t)
	ctx := context.Background()

	res, err := svc.SetReported(ctx, primitive.NewObjectID().Hex())
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.UpsertedCount)

	reported, err := svc.List(ctx, models.BookFilter{Reported: true})
	require.NoError(t, err)
	assert.Len(t, reported, 1)
}

func TestBookService_SetCoverImageAndDelete(t *testing.T) {
	svc := setupBookService(t)
	ctx := context.Background()

	book, err := svc.Create(ctx, &models.Book{Name: "Emma", CategoryID: "3", SellerEmail: "s@x.io"})
	require.NoError(t, err)

	require.NoError(t, svc.SetCoverImage(ctx, book.ID.Hex(), "covers/abc.jpg"))
	stored, err := svc.FindByID(ctx, book.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "covers/abc.jpg", stored.CoverKey)

	deleted, err := svc.Delete(ctx, book.ID.Hex())
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, err = svc.FindByID(ctx, book.ID.Hex())
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)

	_, err = svc.FindByID(ctx, "xyz")
	assert.ErrorIs(t, err, ErrInvalidID)
}
