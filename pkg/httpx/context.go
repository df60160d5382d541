package httpx

import "context"

type ctxKey string

// CtxKeyUserID carries the authenticated account id. The authn middleware
// sets it; rate limiters key on it.
const CtxKeyUserID ctxKey = "user_id"

func userIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}
