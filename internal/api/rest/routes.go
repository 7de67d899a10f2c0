package rest

import (
	stderrors "errors"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"

	"github.com/petstead/api/data/model"
	"github.com/petstead/api/internal/errors"
	"github.com/petstead/api/internal/global"
	"github.com/petstead/api/internal/lifecycle"
	"github.com/petstead/api/internal/svc/auth"
	"github.com/petstead/api/internal/svc/profiles"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (s *HttpServer) setupRoutes(gctx global.Context) {
	authed := func(h fasthttp.RequestHandler) fasthttp.RequestHandler {
		return requireSession(gctx, h)
	}

	s.router.POST("/v1/auth/sign-in", s.signIn(gctx))
	s.router.GET("/v1/session", authed(s.getSession(gctx)))
	s.router.POST("/v1/lifecycle", authed(s.reportLifecycle(gctx)))
	s.router.GET("/v1/notifications/badge", authed(s.notificationBadge(gctx)))
	s.router.GET("/v1/profiles/switchable", s.listSwitchable(gctx))
	s.router.POST("/v1/profiles/switch", authed(s.switchProfile(gctx)))
	s.router.POST("/v1/pages", authed(s.createPage(gctx)))
}

// requireSession rejects requests that do not carry a token for the
// currently active identity.
func requireSession(gctx global.Context, next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		token := strings.TrimPrefix(string(ctx.Request.Header.Peek("Authorization")), "Bearer ")
		if token == "" {
			writeError(ctx, errors.ErrUnauthorized().SetDetail("missing token"))

			return
		}

		claim := &auth.JWTClaimSession{}
		if _, err := gctx.Inst().Auth.VerifyJWT(token, claim); err != nil {
			writeError(ctx, errors.ErrUnauthorized().WithCause(err))

			return
		}

		active, ok := gctx.Inst().Session.Active()
		if !ok || active.ID != claim.Subject {
			writeError(ctx, errors.ErrUnauthorized().SetDetail("no active session for this token"))

			return
		}

		next(ctx)
	}
}

func (s *HttpServer) signIn(gctx global.Context) fasthttp.RequestHandler {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	type response struct {
		Token    string `json:"token"`
		ID       string `json:"id"`
		FullName string `json:"full_name"`
		Email    string `json:"email"`
	}

	return func(ctx *fasthttp.RequestCtx) {
		req := request{}
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			writeError(ctx, errors.ErrValidationRejected().WithCause(err))

			return
		}

		identity, token, err := gctx.Inst().Auth.SignIn(ctx, req.Email, req.Password)
		if err != nil {
			writeError(ctx, err)

			return
		}

		// A successful sign-in makes this profile switchable on the device
		// from now on.
		if err = gctx.Inst().Profiles.RememberDevice(identity.ID); err != nil {
			writeError(ctx, err)

			return
		}

		writeJSON(ctx, fasthttp.StatusOK, response{
			Token:    token,
			ID:       identity.ID,
			FullName: gctx.Inst().Session.FullName(),
			Email:    identity.Email,
		})
	}
}

func (s *HttpServer) getSession(gctx global.Context) fasthttp.RequestHandler {
	type response struct {
		ID         string `json:"id"`
		FullName   string `json:"full_name"`
		Email      string `json:"email"`
		AvatarPath string `json:"avatar_path"`
	}

	return func(ctx *fasthttp.RequestCtx) {
		active, _ := gctx.Inst().Session.Active()

		writeJSON(ctx, fasthttp.StatusOK, response{
			ID:         active.ID,
			FullName:   gctx.Inst().Session.FullName(),
			Email:      active.Email,
			AvatarPath: active.AvatarPath,
		})
	}
}

func (s *HttpServer) reportLifecycle(gctx global.Context) fasthttp.RequestHandler {
	type request struct {
		State string `json:"state"`
	}

	return func(ctx *fasthttp.RequestCtx) {
		req := request{}
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			writeError(ctx, errors.ErrValidationRejected().WithCause(err))

			return
		}

		state := lifecycle.State(req.State)
		if !state.Valid() {
			writeError(ctx, errors.ErrValidationRejected().SetDetail("unknown state %q", req.State))

			return
		}

		gctx.Inst().Lifecycle.Report(state)

		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}
}

func (s *HttpServer) notificationBadge(gctx global.Context) fasthttp.RequestHandler {
	type response struct {
		HasNotifications bool `json:"has_notifications"`
	}

	return func(ctx *fasthttp.RequestCtx) {
		writeJSON(ctx, fasthttp.StatusOK, response{
			HasNotifications: gctx.Inst().Notifications.HasNotifications(),
		})
	}
}

func (s *HttpServer) listSwitchable(gctx global.Context) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		ids, err := gctx.Inst().Profiles.DeviceProfiles()
		if err != nil {
			writeError(ctx, err)

			return
		}

		out, err := gctx.Inst().Profiles.ListSwitchable(ctx, ids)
		if err != nil {
			writeError(ctx, err)

			return
		}

		writeJSON(ctx, fasthttp.StatusOK, out)
	}
}

func (s *HttpServer) switchProfile(gctx global.Context) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		target := model.ProfileSummary{}
		if err := json.Unmarshal(ctx.PostBody(), &target); err != nil {
			writeError(ctx, errors.ErrValidationRejected().WithCause(err))

			return
		}

		if err := gctx.Inst().Profiles.SwitchTo(ctx, target); err != nil {
			writeError(ctx, err)

			return
		}

		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}
}

func (s *HttpServer) createPage(gctx global.Context) fasthttp.RequestHandler {
	type response struct {
		ID string `json:"id"`
	}

	return func(ctx *fasthttp.RequestCtx) {
		draft := profiles.PageDraft{}
		if err := json.Unmarshal(ctx.PostBody(), &draft); err != nil {
			writeError(ctx, errors.ErrValidationRejected().WithCause(err))

			return
		}

		id, err := gctx.Inst().Profiles.CreatePage(ctx, draft)
		if err != nil {
			writeError(ctx, err)

			return
		}

		writeJSON(ctx, fasthttp.StatusCreated, response{ID: id})
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)

		return
	}

	ctx.SetStatusCode(status)
	ctx.SetBody(b)
}

func writeError(ctx *fasthttp.RequestCtx, err error) {
	type response struct {
		Error     string `json:"error"`
		ErrorCode int    `json:"error_code"`
	}

	status := fasthttp.StatusInternalServerError
	code := 0

	apiErr := &errors.APIError{}
	if stderrors.As(err, &apiErr) {
		status = httpStatus(apiErr)
		code = apiErr.Code()
	}

	writeJSON(ctx, status, response{
		Error:     err.Error(),
		ErrorCode: code,
	})
}

func httpStatus(err *errors.APIError) int {
	switch {
	case stderrors.Is(err, errors.ErrNotFound()):
		return fasthttp.StatusNotFound
	case stderrors.Is(err, errors.ErrUnauthorized()), stderrors.Is(err, errors.ErrBadSignIn()):
		return fasthttp.StatusUnauthorized
	case stderrors.Is(err, errors.ErrBadPath()), stderrors.Is(err, errors.ErrValidationRejected()):
		return fasthttp.StatusBadRequest
	case stderrors.Is(err, errors.ErrUnsupported()):
		return fasthttp.StatusUnprocessableEntity
	default:
		return fasthttp.StatusInternalServerError
	}
}
