package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/tenki/internal/middleware"
	"github.com/hitoshi/tenki/internal/model"
	"github.com/hitoshi/tenki/internal/user"
)

// UserServiceInterface は管理者向けユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	List(ctx context.Context, filter model.UserFilter, page, perPage int) (*model.Page[*model.User], error)
	Get(ctx context.Context, id string) (*model.User, error)
	Create(ctx context.Context, in user.CreateInput) (*model.User, error)
	Update(ctx context.Context, id string, in user.UpdateInput) (*model.User, error)
	// Delete は関連データを含めてユーザーを削除する。actorIDとuserIDが同じ場合は拒否する。
	Delete(ctx context.Context, actorID, userID string) error
}

type userStoreRequest struct {
	Name                 string   `json:"name" validate:"required,max=255"`
	Email                string   `json:"email" validate:"required,email,max=255"`
	Password             string   `json:"password" validate:"required,min=8"`
	PasswordConfirmation string   `json:"password_confirmation" validate:"eqfield=Password"`
	Roles                []string `json:"roles" validate:"omitempty,dive,required"`
}

// userUpdateRequest は省略したフィールドを変更しない。
type userUpdateRequest struct {
	Name                 *string  `json:"name" validate:"omitnil,min=1,max=255"`
	Email                *string  `json:"email" validate:"omitnil,email,max=255"`
	Password             string   `json:"password" validate:"omitempty,min=8"`
	PasswordConfirmation string   `json:"password_confirmation" validate:"eqfield=Password"`
	Roles                []string `json:"roles" validate:"omitempty,dive,required"`
}

// UserHandler は管理者向けユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// List はユーザー一覧を返す。searchで名前・メールアドレスを部分一致検索する。
// GET /api/admin/users?search=&page=&per_page=
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagingParams(r)
	filter := model.UserFilter{Search: r.URL.Query().Get("search")}

	result, err := h.service.List(r.Context(), filter, page, perPage)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newPaginatedResponse(result, toUserResource))
}

// Show はユーザーを返す。管理者以外は自分自身のみ参照できる。
// GET /api/admin/users/{id}
func (h *UserHandler) Show(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	id := pathParam(r, "id")
	if actor.ID != id && !actor.HasRole(model.RoleAdmin) {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}

	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dataResponse{Data: toUserResource(u)})
}

// Store はユーザーを作成する。rolesを省略した場合はuserロールになる。
// POST /api/admin/users
func (h *UserHandler) Store(w http.ResponseWriter, r *http.Request) {
	var req userStoreRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusUnprocessableEntity, apiErr)
		return
	}

	u, err := h.service.Create(r.Context(), user.CreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dataResponse{Data: toUserResource(u)})
}

// Update はユーザーを部分更新する。rolesを指定した場合はロールを置き換える。
// PUT /api/admin/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req userUpdateRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusUnprocessableEntity, apiErr)
		return
	}

	u, err := h.service.Update(r.Context(), pathParam(r, "id"), user.UpdateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dataResponse{Data: toUserResource(u)})
}

// Delete はユーザーと関連データを削除する。
// DELETE /api/admin/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actorID, pathParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "User deleted successfully."})
}
