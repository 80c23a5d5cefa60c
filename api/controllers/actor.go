package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/shopdeck/shopdeck-backend/api/middleware"
	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	pkgerrors "github.com/shopdeck/shopdeck-backend/pkg/errors"
)

// requestActor rebuilds the authenticated actor from the values the auth
// middleware seeded into the request context.
type requestActor struct {
	UserID   uuid.UUID
	Role     enums.ActorRole
	VendorID *uuid.UUID
}

func actorFromRequest(r *http.Request) (requestActor, error) {
	ctx := r.Context()

	rawUser := middleware.UserIDFromContext(ctx)
	if rawUser == "" {
		return requestActor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return requestActor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}

	role, err := enums.ParseActorRole(middleware.RoleFromContext(ctx))
	if err != nil {
		return requestActor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor role")
	}

	actor := requestActor{UserID: userID, Role: role}
	if raw := middleware.VendorIDFromContext(ctx); raw != "" {
		vendorID, err := uuid.Parse(raw)
		if err != nil {
			return requestActor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid vendor id")
		}
		actor.VendorID = &vendorID
	}
	if actor.Role == enums.ActorRoleVendor && actor.VendorID == nil {
		return requestActor{}, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing")
	}
	return actor, nil
}
