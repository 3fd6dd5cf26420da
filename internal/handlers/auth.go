package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"time"

	"github.com/dimitrije/washdesk-api/internal/identity"
	"github.com/dimitrije/washdesk-api/internal/middleware"
	"github.com/dimitrije/washdesk-api/internal/oauth"
	"github.com/dimitrije/washdesk-api/internal/session"
	"github.com/dimitrije/washdesk-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/rs/zerolog"
)

type AuthHandler struct {
	frontendURL string
	sessions    SessionRegistry
	tokens      SessionTokenServiceInterface
	flow        SignInFlow
	log         zerolog.Logger
}

func NewAuthHandler(
	frontendURL string,
	sessions SessionRegistry,
	tokens SessionTokenServiceInterface,
	flow SignInFlow,
	log zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		frontendURL: frontendURL,
		sessions:    sessions,
		tokens:      tokens,
		flow:        flow,
		log:         log,
	}
}

// SignIn starts Google sign-in for the caller's browser session, creating
// the session when the request carries no live one.
func (h *AuthHandler) SignIn(c *drift.Context) {
	sessionID := uuid.Nil
	if token, ok := middleware.BearerToken(c); ok {
		if id, err := h.tokens.ValidateSessionToken(token); err == nil {
			if _, ok := h.sessions.Get(id); ok {
				sessionID = id
			}
		}
	}
	if sessionID == uuid.Nil {
		sessionID = uuid.New()
	}

	store, err := h.sessions.GetOrCreate(sessionID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to create session")
		c.InternalServerError("failed to create session")
		return
	}

	consentURL, err := store.SignInWithGoogle(context.Background())
	if err != nil {
		c.InternalServerError("failed to start sign-in")
		return
	}

	token, err := h.tokens.GenerateSessionToken(sessionID)
	if err != nil {
		c.InternalServerError("failed to generate session token")
		return
	}

	_ = c.JSON(200, dto.SignInResponse{
		URL:          consentURL,
		SessionToken: token,
		ExpiresIn:    int64(h.tokens.Expiry().Seconds()),
	})
}

func (h *AuthHandler) Callback(c *drift.Context) {
	if providerErr := c.QueryParam("error"); providerErr != "" {
		h.redirectWithError(c, "sign-in was cancelled")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sessionID, actor, err := h.flow.Complete(ctx, c.QueryParam("state"), c.QueryParam("code"))
	if err != nil {
		h.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("sign-in callback failed")
		switch {
		case errors.Is(err, identity.ErrInvalidState):
			h.redirectWithError(c, "invalid or expired sign-in link")
		case errors.Is(err, identity.ErrMissingCode):
			h.redirectWithError(c, "missing authorization code")
		case errors.Is(err, oauth.ErrEmailNotVerified):
			h.redirectWithError(c, "your Google email address is not verified")
		default:
			h.redirectWithError(c, "failed to complete sign-in")
		}
		return
	}

	h.renderCallbackPage(c, h.frontendURL+session.DashboardPath, actor.Email, "")
}

// Logout signs the session out and drops it from the registry, so the
// session token stops working. A failed sign-out keeps the session and its
// error for the loading screen.
func (h *AuthHandler) Logout(c *drift.Context) {
	store := middleware.GetStore(c)
	if store == nil {
		c.Unauthorized("not authenticated")
		return
	}

	if err := store.Logout(context.Background()); err != nil {
		c.InternalServerError("failed to sign out")
		return
	}
	h.sessions.Remove(middleware.GetSessionID(c))

	_ = c.JSON(200, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) redirectWithError(c *drift.Context, errMsg string) {
	redirectURL := fmt.Sprintf("%s%s?error=%s",
		h.frontendURL,
		session.SignInPath,
		url.QueryEscape(errMsg),
	)
	h.renderCallbackPage(c, redirectURL, errMsg, "error")
}

func (h *AuthHandler) renderCallbackPage(c *drift.Context, target, detail, status string) {
	title := "Signed in"
	heading := "Welcome back"
	subtitle := "Signed in as " + detail
	headingColor := "#0f172a"
	statusCode := 200

	if status == "error" {
		title = "Sign-in failed"
		heading = "We could not sign you in"
		subtitle = detail
		headingColor = "#b91c1c"
		statusCode = 400
	}

	page := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s · WashDesk</title>
    <style>
        body { font-family: system-ui, -apple-system, sans-serif; background: #f1f5f9; color: #334155; margin: 0; padding: 48px 16px; }
        .card { max-width: 380px; margin: 0 auto; background: #fff; border-radius: 10px; padding: 36px 28px; text-align: center; box-shadow: 0 1px 3px rgba(15, 23, 42, 0.08); }
        h1 { font-size: 20px; font-weight: 600; color: %s; margin: 0 0 8px 0; }
        p { font-size: 14px; color: #64748b; margin: 0 0 4px 0; }
        a { color: #0284c7; font-size: 13px; }
    </style>
</head>
<body>
    <div class="card">
        <h1>%s</h1>
        <p>%s</p>
        <p><a href=%q>Continue to WashDesk</a></p>
    </div>
    <script>window.location.replace(%q);</script>
</body>
</html>`, html.EscapeString(title), headingColor, html.EscapeString(heading), html.EscapeString(subtitle), target, target)

	_ = c.HTML(statusCode, page)
}
