package store

import (
	"context"

	"smarttracing/internal/graph"
	"smarttracing/internal/models"
	id "smarttracing/pkg/domain"
	dErrors "smarttracing/pkg/domain-errors"
	"smarttracing/pkg/validation"
)

// UserDAO creates, soft-deletes and reads users.
type UserDAO struct {
	base
}

func NewUserDAO(client *graph.Client, opts ...Option) *UserDAO {
	return &UserDAO{base: newBase(client, opts)}
}

// UserParams are the inputs of CreateUser. Everything but DeviceID is
// optional; Phone is validated when set.
type UserParams struct {
	DeviceID id.DeviceID
	Name     string
	Phone    string
	Email    string
}

// CreateUser writes the user and its OWNS edge to the device in one
// submission. The device is looked up first so a missing one fails with an
// invalid id error and writes nothing.
func (d *UserDAO) CreateUser(ctx context.Context, p UserParams) (id.UserID, error) {
	if err := validation.ValidateOptionalPhoneNumber(p.Phone); err != nil {
		return "", err
	}
	ok, err := d.deviceExists(ctx, p.DeviceID)
	if err != nil {
		d.logger.ErrorContext(ctx, "error looking up device for user", "device_id", p.DeviceID, "error", err)
		return "", err
	}
	if !ok {
		return "", dErrors.InvalidID(p.DeviceID.String())
	}
	userID := id.UserID(d.newID())

	spec := graph.NewVertex(LabelUser, userID.String()).
		SetString(propName, p.Name).
		SetString(propPhone, p.Phone).
		SetString(propEmail, p.Email).
		Set(propDeleted, false).
		Set(propTimestamp, graph.FormatTime(d.clock())).
		EdgeTo(EdgeOwns, p.DeviceID.String())

	if _, err := d.graph.Execute(ctx, "create user", spec); err != nil {
		d.logger.ErrorContext(ctx, "error creating user for device", "device_id", p.DeviceID, "error", err)
		return "", err
	}
	return userID, nil
}

// DeleteUser soft-deletes a user. The vertex and its edges stay.
func (d *UserDAO) DeleteUser(ctx context.Context, userID id.UserID, existence graph.Existence) error {
	_, err := d.graph.Execute(ctx, "delete user", graph.PropertyUpdate{
		ID:         userID.String(),
		Label:      LabelUser,
		Properties: map[string]any{propDeleted: true},
		Existence:  existence,
	})
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to delete user", "user_id", userID, "error", err)
	}
	return err
}

// GetUser returns ok == false for unknown and soft-deleted users.
func (d *UserDAO) GetUser(ctx context.Context, userID id.UserID) (models.User, bool, error) {
	props, ok, err := d.graph.PropertyMapOf(ctx, "get user", graph.VertexQuery{
		ID:    userID.String(),
		Label: LabelUser,
		Has:   map[string]any{propDeleted: false},
	})
	if err != nil {
		d.logger.ErrorContext(ctx, "error getting user", "user_id", userID, "error", err)
		return models.User{}, false, err
	}
	if !ok {
		return models.User{}, false, nil
	}

	dec := graph.NewDecoder(LabelUser, userID.String(), props)
	user := models.User{
		ID:   userID,
		Name: dec.OptionalString(propName),
		ContactInfo: models.ContactInfo{
			Email: dec.OptionalString(propEmail),
			Phone: dec.OptionalString(propPhone),
		},
		CreatedAt: dec.Time(propTimestamp),
	}
	if err := dec.Err(); err != nil {
		return models.User{}, false, err
	}
	return user, true, nil
}
