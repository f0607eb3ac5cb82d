package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/teamhub/teamhub/backend/go-services/internal/models"
)

// MongoRepository implements Repository using MongoDB
type MongoRepository struct {
	col *mongo.Collection
}

// NewMongoRepository creates a new repository for the given collection
func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func mapWriteErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		if strings.Contains(err.Error(), "email") {
			return ErrDuplicateEmail
		}
		return ErrDuplicateIdentity
	}
	return err
}

func (r *MongoRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC()
	c := u.Clone()
	if c.ID == "" {
		c.ID = primitive.NewObjectID().Hex()
	}
	c.Email = models.NormalizeEmail(c.Email)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if _, err := r.col.InsertOne(ctx, c); err != nil {
		return nil, mapWriteErr(err)
	}
	return c, nil
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": models.NormalizeEmail(email)})
}

func (r *MongoRepository) GetByStripeID(ctx context.Context, stripeID string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"stripeId": stripeID})
}

func (r *MongoRepository) GetByProvider(ctx context.Context, provider, providerID string) (*models.User, error) {
	switch provider {
	case ProviderGitHub:
		return r.findOne(ctx, bson.M{"githubId": providerID})
	case ProviderGoogle:
		return r.findOne(ctx, bson.M{"googleId": providerID})
	}
	return nil, ErrNotFound
}

func (r *MongoRepository) Query(ctx context.Context, f Filter, opts QueryOptions) (*QueryResult, error) {
	opts = normalizeOptions(opts)
	filter := bson.M{}
	if f.Name != "" {
		filter["name"] = f.Name
	}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort := bson.D{{Key: "createdAt", Value: 1}}
	if field, dir, ok := strings.Cut(opts.SortBy, ":"); ok && field != "" {
		order := 1
		if dir == "desc" {
			order = -1
		}
		sort = bson.D{{Key: field, Value: order}}
	}
	findOpts := options.Find().
		SetSort(sort).
		SetSkip(int64((opts.Page - 1) * opts.Limit)).
		SetLimit(int64(opts.Limit))
	cur, err := r.col.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return &QueryResult{
		Results:      out,
		Page:         opts.Page,
		Limit:        opts.Limit,
		TotalPages:   totalPages(total, opts.Limit),
		TotalResults: total,
	}, nil
}

func (r *MongoRepository) Update(ctx context.Context, id string, p Patch) (*models.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	unset := bson.M{}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Email != nil {
		set["email"] = models.NormalizeEmail(*p.Email)
	}
	if p.PasswordHash != nil {
		set["password"] = *p.PasswordHash
	}
	if p.Role != nil {
		set["role"] = *p.Role
	}
	if p.EmailVerified != nil {
		set["isEmailVerified"] = *p.EmailVerified
	}
	if p.GithubID != nil {
		set["githubId"] = *p.GithubID
	}
	if p.GoogleID != nil {
		set["googleId"] = *p.GoogleID
	}
	if p.ActiveTeam != nil {
		if *p.ActiveTeam == "" {
			unset["activeTeam"] = ""
		} else {
			set["activeTeam"] = *p.ActiveTeam
		}
	}
	if p.Avatar != nil {
		set["avatar"] = *p.Avatar
	}
	if p.StripeID != nil {
		set["stripeId"] = *p.StripeID
	}
	if p.PaymentMethod != nil {
		if *p.PaymentMethod == nil {
			unset["stripePaymentMethod"] = ""
		} else {
			set["stripePaymentMethod"] = *p.PaymentMethod
		}
	}
	if p.Subscription != nil {
		set["subscription"] = *p.Subscription
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, update)
}

func (r *MongoRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, mapWriteErr(err)
	}
	return &u, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// missing tells a filter miss on userID apart from a missing user.
func (r *MongoRepository) missing(ctx context.Context, userID string, ifExists error) error {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": userID})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ifExists
}

func (r *MongoRepository) AddTeam(ctx context.Context, userID string, m models.TeamMembership) (*models.User, error) {
	filter := bson.M{"_id": userID, "teams.id": bson.M{"$ne": m.ID}}
	update := bson.M{
		"$push": bson.M{"teams": m},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	u, err := r.findOneAndUpdate(ctx, filter, update)
	if errors.Is(err, ErrNotFound) {
		return nil, r.missing(ctx, userID, ErrDuplicateMembership)
	}
	return u, err
}

func (r *MongoRepository) UpdateTeam(ctx context.Context, userID string, m models.TeamMembership) (*models.User, error) {
	filter := bson.M{"_id": userID, "teams.id": m.ID}
	update := bson.M{"$set": bson.M{
		"teams.$.name": m.Name,
		"teams.$.role": m.Role,
		"updatedAt":    time.Now().UTC(),
	}}
	u, err := r.findOneAndUpdate(ctx, filter, update)
	if errors.Is(err, ErrNotFound) {
		return nil, r.missing(ctx, userID, ErrMembershipNotFound)
	}
	return u, err
}

func (r *MongoRepository) RemoveTeam(ctx context.Context, userID, teamID string) (*models.User, error) {
	update := bson.M{
		"$pull": bson.M{"teams": bson.M{"id": teamID}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	u, err := r.findOneAndUpdate(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return nil, err
	}
	if u.ActiveTeam != teamID {
		return u, nil
	}
	cleared, err := r.findOneAndUpdate(ctx,
		bson.M{"_id": userID, "activeTeam": teamID},
		bson.M{"$unset": bson.M{"activeTeam": ""}})
	if errors.Is(err, ErrNotFound) {
		// activeTeam changed concurrently
		return r.GetByID(ctx, userID)
	}
	return cleared, err
}
