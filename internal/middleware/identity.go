package middleware

import (
	"context"
	"net/http"

	"github.com/rentwork/internal/model"
)

type contextKey string

const actorKey contextKey = "actor"

// Identity кладёт в контекст запроса личность действующего пользователя.
// Профиль приходит из заголовков X-Actor-* (их проставляет оболочка
// кабинета); при их отсутствии используется def из конфигурации.
func Identity(def model.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFromRequest(r, def)
			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFromRequest собирает Identity из заголовков с фолбэком на def.
func ActorFromRequest(r *http.Request, def model.Identity) model.Identity {
	actor := def
	if v := r.Header.Get("X-Actor-Id"); v != "" {
		actor.ID = v
	}
	if v := r.Header.Get("X-Actor-Name"); v != "" {
		actor.Name = v
	}
	if v := r.Header.Get("X-Actor-Avatar"); v != "" {
		actor.Avatar = v
	}
	return actor
}

// GetActor возвращает Identity из контекста (устанавливается Identity middleware).
func GetActor(ctx context.Context) model.Identity {
	v, _ := ctx.Value(actorKey).(model.Identity)
	return v
}
