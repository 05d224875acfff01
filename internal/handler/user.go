package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/service"
)

// UserService is implemented by *service.UserService.
type UserService interface {
	Register(ctx context.Context, in service.UserInput, img *service.Upload) (model.User, error)
	Get(ctx context.Context, actor service.Actor, id uint64) (model.User, error)
	List(ctx context.Context, p model.PageRequest) (service.Page[model.User], error)
	Update(ctx context.Context, actor service.Actor, id uint64, in service.UserInput, img *service.Upload) (model.User, error)
	ChangeRole(ctx context.Context, id uint64, role string) (model.User, error)
	Delete(ctx context.Context, actor service.Actor, id uint64) error
}

// AuthService is implemented by *service.AuthService.
type AuthService interface {
	Login(ctx context.Context, email, password string) (service.Tokens, error)
	Refresh(ctx context.Context, raw string) (service.Tokens, error)
	Logout(ctx context.Context, userID uint64) error
}

type UserHandler struct {
	users UserService
	auth  AuthService
}

func NewUserHandler(users UserService, auth AuthService) *UserHandler {
	return &UserHandler{users: users, auth: auth}
}

type registerRequest struct {
	Username string `json:"username" form:"username" validate:"required,min=6,max=255"`
	Email    string `json:"email" form:"email" validate:"required,email,max=255"`
	Password string `json:"password" form:"password" validate:"required,min=8,max=255"`
}

// updateUserRequest leaves the password unchanged when it is empty.
type updateUserRequest struct {
	Username string `json:"username" form:"username" validate:"required,min=6,max=255"`
	Email    string `json:"email" form:"email" validate:"required,email,max=255"`
	Password string `json:"password" form:"password" validate:"omitempty,min=8,max=255"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=Customer Sales Admin"`
}

type userView struct {
	model.User
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
	Links           []Link `json:"links"`
}

func userViewOf(c echo.Context, l linker, u model.User) userView {
	v := userView{User: u}
	if u.ProfileImage != "" {
		v.ProfileImageURL = c.Scheme() + "://" + c.Request().Host + "/images/" + u.ProfileImage
	}
	v.Links = append(l.crud(l.href("/users/%d", u.ID), typeMultipart),
		l.link("reservations", "GET", l.href("/users/%d/reservations", u.ID)),
		l.link("role", "PATCH", l.href("/users/%d/role", u.ID), typeJSON),
	)
	return v
}

// Register handles POST /api/users/register with an optional
// "profilePicture" file.
func (h *UserHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	img, done, err := upload(c, "profilePicture")
	if err != nil {
		return err
	}
	defer done()

	u, err := h.users.Register(c.Request().Context(), service.UserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}, img)
	if err != nil {
		return err
	}
	l := linksFor(c)
	return created(c, l.href("/users/%d", u.ID), userViewOf(c, l, u))
}

// Login handles POST /api/users/login.
func (h *UserHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	tokens, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokens)
}

// Refresh handles POST /api/users/refresh.
func (h *UserHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	tokens, err := h.auth.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokens)
}

// Logout handles POST /api/users/logout.
func (h *UserHandler) Logout(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	if err := h.auth.Logout(c.Request().Context(), a.UserID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// List handles GET /api/users.
func (h *UserHandler) List(c echo.Context) error {
	p, err := pageParams(c)
	if err != nil {
		return err
	}
	page, err := h.users.List(c.Request().Context(), p)
	if err != nil {
		return err
	}
	l := linksFor(c)
	data := make([]userView, 0, len(page.Items))
	for _, u := range page.Items {
		data = append(data, userViewOf(c, l, u))
	}
	return c.JSON(http.StatusOK, list(c, page, data))
}

func (h *UserHandler) Get(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	u, err := h.users.Get(c.Request().Context(), a, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userViewOf(c, linksFor(c), u))
}

func (h *UserHandler) Update(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req updateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	img, done, err := upload(c, "profilePicture")
	if err != nil {
		return err
	}
	defer done()

	u, err := h.users.Update(c.Request().Context(), a, id, service.UserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}, img)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userViewOf(c, linksFor(c), u))
}

// ChangeRole handles PATCH /api/users/:id/role.
func (h *UserHandler) ChangeRole(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req roleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.users.ChangeRole(c.Request().Context(), id, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userViewOf(c, linksFor(c), u))
}

func (h *UserHandler) Delete(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.Request().Context(), a, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
