package http

import (
	"net/http"

	"github.com/cardfile/cardfile/internal/domain"
	"github.com/cardfile/cardfile/internal/service"
	"github.com/cardfile/cardfile/pkg/httpx"
	"github.com/cardfile/cardfile/pkg/slogx"
)

// maxAvatarBytes caps avatar uploads at 5 MiB.
const maxAvatarBytes = 5 << 20

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Avatar:   u.AvatarURL,
	}
}

// MeHandler returns the authenticated account's profile. The middleware has
// already resolved the account, so this is a context read.
type MeHandler struct{}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromCtx(r.Context())
	if !ok {
		unauthorized(w, "Not authenticated")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// AvatarHandler replaces the account's avatar with an uploaded image.
type AvatarHandler struct {
	UserService *service.UserService
}

func (h *AvatarHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := userFromCtx(ctx)
	if !ok {
		unauthorized(w, "Not authenticated")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes)
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "Missing file field")
		return
	}
	defer file.Close()

	updated, err := h.UserService.UpdateAvatar(ctx, user.ID, file)
	if err != nil {
		log.Error("avatar update failed", "user_id", user.ID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(updated))
}
