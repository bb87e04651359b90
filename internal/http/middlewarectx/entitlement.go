package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/examprep/internal/entitlement"
	"github.com/magabrotheeeer/examprep/internal/http/response"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/models"
	"github.com/magabrotheeeer/examprep/internal/services/auth"
	"github.com/magabrotheeeer/examprep/internal/tier"
)

type planKey struct{}

type userKey struct{}

// UserProvider возвращает пользователя с актуальным статусом доступа.
type UserProvider interface {
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
}

// ActiveEntitlementMiddleware пропускает только пользователей с действующей
// подпиской и кладёт в контекст пользователя и его тариф. Должен стоять после
// JWTMiddleware.
func ActiveEntitlementMiddleware(users UserProvider, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.ActiveEntitlementMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			userID, ok := UserIDFrom(r.Context())
			if !ok {
				log.Error("user identification missing")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			user, err := users.CurrentUser(r.Context(), userID)
			if errors.Is(err, auth.ErrUnauthorized) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user not found"))
				return
			}
			if err != nil {
				log.Error("failed to load user", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal error"))
				return
			}

			plan, ok := entitlement.Plan(user.Entitlement, time.Now())
			if !ok {
				msg := "active subscription required"
				if user.Entitlement.SubscriptionStatus == models.StatusExpired {
					msg = "subscription expired, access denied"
				}
				log.Info("access denied", slog.String("user_id", userID), slog.String("status", user.Entitlement.SubscriptionStatus))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error(msg))
				return
			}

			ctx := context.WithValue(r.Context(), userKey{}, user)
			ctx = context.WithValue(ctx, planKey{}, plan)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PlanFrom возвращает действующий тариф пользователя из контекста.
func PlanFrom(ctx context.Context) (tier.Plan, bool) {
	p, ok := ctx.Value(planKey{}).(tier.Plan)
	return p, ok
}

// WithPlan кладёт тариф в контекст.
func WithPlan(ctx context.Context, p tier.Plan) context.Context {
	return context.WithValue(ctx, planKey{}, p)
}

// UserFrom возвращает пользователя, загруженного ActiveEntitlementMiddleware.
func UserFrom(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey{}).(*models.User)
	return u, ok && u != nil
}
