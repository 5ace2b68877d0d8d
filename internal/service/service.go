// Package service builds the console pages. Each page method takes the
// signed-in viewer, fans its independent backend reads out concurrently and
// returns one view model. Mutations validate locally before any network call
// and never patch cached state: callers re-read the page afterwards.
package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"messagemaster/internal/gateway"
	"messagemaster/internal/models"
	"messagemaster/internal/policy"
)

// ValidationError is a client-side rejection; no request was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

type Service struct {
	api *gateway.Client
}

func New(api *gateway.Client) *Service {
	return &Service{api: api}
}

// scopeFor is the list scope a dashboard asks for. Admin and Reseller lists
// are scoped by the credential alone.
func scopeFor(viewer models.Identity) gateway.UserScope {
	switch viewer.Role {
	case models.RoleSubReseller:
		return gateway.UserScope{Role: viewer.Role, Email: viewer.Email}
	case models.RoleUser:
		return gateway.UserScope{Role: models.RoleSubReseller, Requester: viewer.Email}
	default:
		return gateway.UserScope{}
	}
}

// fanOut runs every fn concurrently and returns the first error once all finished.
func fanOut(ctx context.Context, fns ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		fn := fn
		g.Go(func() error { return fn(gctx) })
	}
	return g.Wait()
}

func requireRoute(viewer models.Identity, route policy.RouteID) error {
	if !policy.CanAccess(viewer.Role, route) {
		return policy.ErrForbidden
	}
	return nil
}

func logAction(viewer models.Identity, action, target string, err error) {
	if err != nil {
		log.Printf("action failed action=%s actor=%s target=%s error=%q", action, viewer.Email, target, err.Error())
		return
	}
	log.Printf("action ok action=%s actor=%s target=%s", action, viewer.Email, target)
}

func required(field, value, msg string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, msg)
	}
	return nil
}
