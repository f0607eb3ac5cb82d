package teams

import (
	"context"
	"errors"
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

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, t *models.Team) (*models.Team, error) {
	c := t.Clone()
	if c.ID == "" {
		c.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	for i := range c.Users {
		c.Users[i].Email = models.NormalizeEmail(c.Users[i].Email)
	}
	if _, err := r.col.InsertOne(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*models.Team, error) {
	var t models.Team
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *MongoRepository) update(ctx context.Context, filter, update bson.M, doc options.ReturnDocument) (*models.Team, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(doc)
	var t models.Team
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// missing tells a filter miss apart from a missing team.
func (r *MongoRepository) missing(ctx context.Context, teamID string, ifExists error) error {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": teamID})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ifExists
}

func (r *MongoRepository) Rename(ctx context.Context, id, name string) (*models.Team, error) {
	return r.update(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"name": name, "updatedAt": time.Now().UTC()}}, options.After)
}

func (r *MongoRepository) Delete(ctx context.Context, id string) (*models.Team, error) {
	var t models.Team
	if err := r.col.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *MongoRepository) AddUser(ctx context.Context, teamID string, u models.TeamUser) (*models.Team, error) {
	u.Email = models.NormalizeEmail(u.Email)
	t, err := r.update(ctx,
		bson.M{"_id": teamID, "users.id": bson.M{"$ne": u.ID}},
		bson.M{"$push": bson.M{"users": u}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
		options.After)
	if errors.Is(err, ErrNotFound) {
		return nil, r.missing(ctx, teamID, ErrDuplicateMember)
	}
	return t, err
}

func (r *MongoRepository) UpdateUser(ctx context.Context, teamID, userID string, p UserPatch) (*models.Team, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if p.Name != nil {
		set["users.$.name"] = *p.Name
	}
	if p.Email != nil {
		set["users.$.email"] = models.NormalizeEmail(*p.Email)
	}
	if p.Role != nil {
		set["users.$.role"] = *p.Role
	}
	t, err := r.update(ctx, bson.M{"_id": teamID, "users.id": userID}, bson.M{"$set": set}, options.After)
	if errors.Is(err, ErrNotFound) {
		return nil, r.missing(ctx, teamID, ErrMemberNotFound)
	}
	return t, err
}

func (r *MongoRepository) RemoveUser(ctx context.Context, teamID, userID string) (*models.Team, error) {
	t, err := r.update(ctx,
		bson.M{"_id": teamID, "users.id": userID},
		bson.M{"$pull": bson.M{"users": bson.M{"id": userID}}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
		options.After)
	if errors.Is(err, ErrNotFound) {
		return nil, r.missing(ctx, teamID, ErrMemberNotFound)
	}
	return t, err
}

func (r *MongoRepository) AddInvitation(ctx context.Context, teamID string, inv models.Invitation) (*models.Team, error) {
	inv.Email = models.NormalizeEmail(inv.Email)
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	t, err := r.update(ctx,
		bson.M{
			"_id":               teamID,
			"users.email":       bson.M{"$ne": inv.Email},
			"invitations.email": bson.M{"$ne": inv.Email},
		},
		bson.M{"$push": bson.M{"invitations": inv}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
		options.After)
	if !errors.Is(err, ErrNotFound) {
		return t, err
	}
	cur, gerr := r.GetByID(ctx, teamID)
	if gerr != nil {
		return nil, gerr
	}
	if cur.UserByEmail(inv.Email) != nil {
		return nil, ErrAlreadyMember
	}
	return nil, ErrDuplicateInvitation
}

func (r *MongoRepository) RemoveInvitation(ctx context.Context, teamID, invitationID string) (*models.Team, error) {
	t, err := r.update(ctx,
		bson.M{"_id": teamID, "invitations.id": invitationID},
		bson.M{"$pull": bson.M{"invitations": bson.M{"id": invitationID}}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
		options.Before)
	if errors.Is(err, ErrNotFound) {
		return nil, r.missing(ctx, teamID, ErrInvitationNotFound)
	}
	return t, err
}
