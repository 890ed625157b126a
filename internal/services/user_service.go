package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"bibliophile/server/internal/auth"
	"bibliophile/server/internal/db"
	"bibliophile/server/internal/logging"
	"bibliophile/server/internal/models"
)

// IUserService is the role directory: it resolves emails to user records and
// applies the admin-only user mutations.
type IUserService interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	HasRole(ctx context.Context, email string, role auth.Role) (bool, error)
	RegisterIfAbsent(ctx context.Context, user *models.User) (*models.User, bool, error)
	ListByRole(ctx context.Context, role auth.Role) ([]models.User, error)
	FindVerifiedSeller(ctx context.Context, email string) (*models.User, error)
	SetRole(ctx context.Context, userID string, role auth.Role) (*UpdateResult, error)
	SetVerifyStatus(ctx context.Context, userID string, verified bool) (*UpdateResult, error)
	DeleteUser(ctx context.Context, userID string) (int64, error)
}

// userService implements IUserService.
type userService struct {
	db *mongo.Database
}

// NewUserService creates a new UserService.
func NewUserService(database *mongo.Database) IUserService {
	return &userService{db: database}
}

func (s *userService) users() *mongo.Collection {
	return s.db.Collection(db.UsersCollection)
}

// FindByEmail finds a user by their email address.
// Returns nil and mongo.ErrNoDocuments if not found.
func (s *userService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.users().FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding user by email %s: %w", email, err)
	}
	return &user, nil
}

// HasRole reports whether email belongs to a user holding role. An unknown
// email is a plain "no", since role checks run before the user registers.
func (s *userService) HasRole(ctx context.Context, email string, role auth.Role) (bool, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	return user.HasRole(role), nil
}

// RegisterIfAbsent inserts user unless a record with the same email exists, in
// which case the existing record is returned untouched and created is false.
func (s *userService) RegisterIfAbsent(ctx context.Context, user *models.User) (*models.User, bool, error) {
	user.Email = strings.TrimSpace(user.Email)

	existing, err := s.FindByEmail(ctx, user.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}

	user.ID = primitive.NewObjectID()
	user.VerifyStatus = false
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	if _, err := s.users().InsertOne(ctx, user); err != nil {
		// Lost a race against a concurrent registration of the same email.
		if db.IsMongoDuplicateKeyError(err) {
			existing, findErr := s.FindByEmail(ctx, user.Email)
			if findErr != nil {
				return nil, false, fmt.Errorf("user %s exists but could not be loaded: %w", user.Email, findErr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("error inserting user %s: %w", user.Email, err)
	}

	logging.L().Info("registered user", zap.String("email", user.Email), zap.Stringer("role", user.Role))
	return user, true, nil
}

// ListByRole returns every user holding role, in natural order.
func (s *userService) ListByRole(ctx context.Context, role auth.Role) ([]models.User, error) {
	cursor, err := s.users().Find(ctx, bson.M{"role": role})
	if err != nil {
		return nil, fmt.Errorf("failed to query users with role %s: %w", role, err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users with role %s: %w", role, err)
	}
	return users, nil
}

// FindVerifiedSeller returns the seller with email if an admin verified them.
func (s *userService) FindVerifiedSeller(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	filter := bson.M{"email": email, "role": auth.RoleSeller, "verifyStatus": true}
	if err := s.users().FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding verified seller %s: %w", email, err)
	}
	return &user, nil
}

// SetRole assigns role to the user. The write upserts: an unknown id creates
// a stub record instead of failing.
func (s *userService) SetRole(ctx context.Context, userID string, role auth.Role) (*UpdateResult, error) {
	return s.upsertFields(ctx, userID, bson.M{"role": role})
}

// SetVerifyStatus marks a seller verified. Upserts like SetRole.
func (s *userService) SetVerifyStatus(ctx context.Context, userID string, verified bool) (*UpdateResult, error) {
	return s.upsertFields(ctx, userID, bson.M{"verifyStatus": verified})
}

func (s *userService) upsertFields(ctx context.Context, userID string, fields bson.M) (*UpdateResult, error) {
	oid, err := parseObjectID(userID)
	if err != nil {
		return nil, err
	}
	opts := options.Update().SetUpsert(true)
	result, err := s.users().UpdateByID(ctx, oid, bson.M{"$set": fields}, opts)
	if err != nil {
		return nil, fmt.Errorf("error updating user %s: %w", userID, err)
	}
	if result.UpsertedCount > 0 {
		logging.L().Warn("user update created a new record", zap.String("user_id", userID), zap.Any("fields", fields))
	}
	return newUpdateResult(result), nil
}

// DeleteUser removes the user. A missing id deletes nothing and is not an error.
func (s *userService) DeleteUser(ctx context.Context, userID string) (int64, error) {
	oid, err := parseObjectID(userID)
	if err != nil {
		return 0, err
	}
	result, err := s.users().DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return 0, fmt.Errorf("error deleting user %s: %w", userID, err)
	}
	return result.DeletedCount, nil
}
