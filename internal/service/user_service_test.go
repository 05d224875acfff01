package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/apperr"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

func register(t *testing.T, w *world, name string) model.User {
	t.Helper()
	u, err := w.users.Register(context.Background(), UserInput{
		Username: name, Email: name + "@Example.com", Password: "secret-pass",
	}, nil)
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	w := newWorld(t, ModeDirect)
	u := register(t, w, "marija")

	assert.Equal(t, model.RoleCustomer, u.Role)
	assert.Equal(t, "marija@example.com", u.Email)
	assert.NotEqual(t, "secret-pass", u.PasswordHash)

	_, err := w.users.Register(context.Background(), UserInput{Username: "marija", Email: "x@example.com", Password: "secret-pass"}, nil)
	assert.Equal(t, apperr.ReasonDuplicate, apperr.ReasonOf(err))
	assert.Contains(t, err.Error(), "username")

	_, err = w.users.Register(context.Background(), UserInput{Username: "other", Email: "MARIJA@example.com", Password: "secret-pass"}, nil)
	assert.Equal(t, apperr.ReasonDuplicate, apperr.ReasonOf(err))
	assert.Contains(t, err.Error(), "email")
}

func TestLoginRefreshLogout(t *testing.T) {
	w := newWorld(t, ModeDirect)
	u := register(t, w, "nikola")
	ctx := context.Background()

	_, err := w.auth.Login(ctx, "nikola@example.com", "wrong")
	assert.Equal(t, apperr.ReasonInvalidCredentials, apperr.ReasonOf(err))
	_, err = w.auth.Login(ctx, "nobody@example.com", "secret-pass")
	assert.Equal(t, apperr.ReasonInvalidCredentials, apperr.ReasonOf(err))
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	tok, err := w.auth.Login(ctx, "NIKOLA@example.com", "secret-pass")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.TokenType)
	require.NotEmpty(t, tok.RefreshToken)

	claims, err := utils.ParseAccessToken("test-secret", tok.AccessToken)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
	assert.Equal(t, model.RoleCustomer, claims.Role)

	_, err = w.users.ChangeRole(ctx, u.ID, model.RoleSales)
	require.NoError(t, err)
	fresh, err := w.auth.Refresh(ctx, tok.RefreshToken)
	require.NoError(t, err)
	assert.Empty(t, fresh.RefreshToken)
	claims, err = utils.ParseAccessToken("test-secret", fresh.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, model.RoleSales, claims.Role)

	require.NoError(t, w.auth.Logout(ctx, u.ID))
	_, err = w.auth.Refresh(ctx, tok.RefreshToken)
	assert.Equal(t, apperr.ReasonInvalidToken, apperr.ReasonOf(err))
	_, err = w.auth.Refresh(ctx, "")
	assert.Equal(t, apperr.ReasonInvalidToken, apperr.ReasonOf(err))
}

func TestUserSelfService(t *testing.T) {
	w := newWorld(t, ModeDirect)
	ctx := context.Background()
	u := register(t, w, "jelena")
	other := register(t, w, "petar")

	_, err := w.users.Get(ctx, actorOf(other), u.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	got, err := w.users.Get(ctx, actorOf(u), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "jelena", got.Username)

	updated, err := w.users.Update(ctx, actorOf(u), u.ID, UserInput{Username: "jelena2", Email: u.Email}, nil)
	require.NoError(t, err)
	assert.Equal(t, u.PasswordHash, updated.PasswordHash, "empty password keeps the old hash")
	assert.Equal(t, "jelena2", updated.Username)

	_, err = w.users.Update(ctx, actorOf(u), u.ID, UserInput{Username: "petar", Email: u.Email}, nil)
	assert.Equal(t, apperr.ReasonDuplicate, apperr.ReasonOf(err))

	_, err = w.users.Update(ctx, actorOf(other), u.ID, UserInput{Username: "hijack", Email: u.Email}, nil)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestChangeRole(t *testing.T) {
	w := newWorld(t, ModeDirect)
	u := register(t, w, "milos")

	_, err := w.users.ChangeRole(context.Background(), u.ID, "Owner")
	assert.Equal(t, apperr.ReasonInvalidInput, apperr.ReasonOf(err))
	_, err = w.users.ChangeRole(context.Background(), 999, model.RoleAdmin)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	got, err := w.users.ChangeRole(context.Background(), u.ID, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, got.Role)
}

func TestDeleteUserReleasesSeats(t *testing.T) {
	w := newWorld(t, ModeDirect)
	ctx := context.Background()
	h := w.hall(t, 30)
	m := w.movie(t, 90)
	a := w.screening(t, m.ID, h.ID, day(3), "15:00")
	b := w.screening(t, m.ID, h.ID, day(4), "15:00")
	u := register(t, w, "ana")
	stranger := register(t, w, "vuk")

	for _, sc := range []model.Screening{a, b} {
		_, err := w.reservations.Create(ctx, actorOf(u), sc.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 29, w.seats(t, a.ID))

	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(w.users.Delete(ctx, actorOf(stranger), u.ID)))

	require.NoError(t, w.users.Delete(ctx, actorOf(u), u.ID))
	assert.Equal(t, 30, w.seats(t, a.ID))
	assert.Equal(t, 30, w.seats(t, b.ID))
	assert.Empty(t, w.db.reservations)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(w.users.Delete(ctx, Actor{UserID: u.ID, Role: model.RoleAdmin}, u.ID)))
}
